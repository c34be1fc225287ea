package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/oshocks/bikeshop/pkg/flows"
	"github.com/oshocks/bikeshop/pkg/forms"
	"github.com/oshocks/bikeshop/pkg/wizard"
)

// Variant editor menu entries.
const (
	ActionAddColor    = "Add a color"
	ActionAddImages   = "Add images to a color"
	ActionRemoveColor = "Remove a color"
	ActionDone        = "Done"
)

// EditVariants manages the product's color variants until the user picks
// Done. Problems with a single action are shown and the menu returns.
func EditVariants(ctx context.Context, d Driver, w *wizard.Wizard) error {
	for {
		variants := w.Store().Variants()
		if err := listVariants(ctx, d, w, variants); err != nil {
			return err
		}

		actions := []string{ActionAddColor}
		if len(variants) > 0 {
			actions = append(actions, ActionAddImages, ActionRemoveColor)
		}
		actions = append(actions, ActionDone)
		if !w.IsFirst() {
			actions = append(actions, backOption)
		}

		i, err := d.Select(ctx, SelectConfig{Message: "Colors", Options: actions, Default: -1})
		if err != nil {
			return err
		}
		if i < 0 || i >= len(actions) {
			return fmt.Errorf("prompt: option %d out of range", i)
		}

		switch actions[i] {
		case ActionAddColor:
			err = addColor(ctx, d, w)
		case ActionAddImages:
			err = addImages(ctx, d, w, variants)
		case ActionRemoveColor:
			err = removeColor(ctx, d, w, variants)
		case ActionDone:
			return nil
		case backOption:
			return errBack
		}
		if err != nil {
			return err
		}
	}
}

func listVariants(ctx context.Context, d Driver, w *wizard.Wizard, variants []forms.Variant) error {
	if len(variants) == 0 {
		return d.Info(ctx, "  No colors yet.")
	}
	for i, v := range variants {
		line := fmt.Sprintf("  %d. %s", i+1, v.Color)
		if v.ColorCode != "" {
			line += " (" + v.ColorCode + ")"
		}
		line += fmt.Sprintf(", stock %d, %d image(s)", v.Stock, len(v.Images))
		if err := d.Info(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func addColor(ctx context.Context, d Driver, w *wizard.Wizard) error {
	color, err := d.Input(ctx, InputConfig{Message: "Color *"})
	if err != nil {
		return err
	}
	code, err := d.Input(ctx, InputConfig{Message: "Color code", Help: "Hex value such as #1a1a1a"})
	if err != nil {
		return err
	}
	rawStock, err := d.Input(ctx, InputConfig{Message: "Stock *", Default: "0"})
	if err != nil {
		return err
	}
	stock, convErr := strconv.Atoi(strings.TrimSpace(rawStock))
	if convErr != nil {
		return d.Info(ctx, "  ✗ Stock must be a whole number")
	}

	id, addErr := flows.AddVariant(w, color, code, stock)
	if addErr != nil {
		return d.Info(ctx, "  ✗ "+addErr.Error())
	}
	return askImages(ctx, d, w, id)
}

func addImages(ctx context.Context, d Driver, w *wizard.Wizard, variants []forms.Variant) error {
	v, ok, err := pickVariant(ctx, d, variants)
	if err != nil || !ok {
		return err
	}
	return askImages(ctx, d, w, v.ID)
}

func askImages(ctx context.Context, d Driver, w *wizard.Wizard, variantID string) error {
	raw, err := d.Input(ctx, InputConfig{Message: "Images", Help: "File paths separated by commas"})
	if err != nil {
		return err
	}
	paths := SplitPaths(raw)
	if len(paths) == 0 {
		return nil
	}
	if _, err := flows.AddVariantImagePaths(ctx, w, variantID, paths); err != nil {
		return d.Info(ctx, "  ✗ "+err.Error())
	}
	return nil
}

func removeColor(ctx context.Context, d Driver, w *wizard.Wizard, variants []forms.Variant) error {
	v, ok, err := pickVariant(ctx, d, variants)
	if err != nil || !ok {
		return err
	}
	if err := flows.RemoveVariant(w, v.ID); err != nil {
		return d.Info(ctx, "  ✗ "+err.Error())
	}
	return nil
}

func pickVariant(ctx context.Context, d Driver, variants []forms.Variant) (forms.Variant, bool, error) {
	names := make([]string, len(variants))
	for i, v := range variants {
		names[i] = v.Color
	}
	i, err := d.Select(ctx, SelectConfig{Message: "Which color?", Options: names, Default: -1})
	if err != nil {
		return forms.Variant{}, false, err
	}
	if i < 0 || i >= len(variants) {
		return forms.Variant{}, false, nil
	}
	return variants[i], true, nil
}
