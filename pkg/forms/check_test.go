package forms

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCheck_RequiredRecordsEveryField(t *testing.T) {
	values := Map{"firstName": "Wanjiru", "lastName": ""}

	rs := NewCheck(values).
		Required("firstName", "First name is required").
		Required("lastName", "Last name is required").
		Results()

	if !rs.Checked("firstName") {
		t.Error("expected firstName to carry an explicit result")
	}
	if !rs["firstName"].OK() {
		t.Errorf("expected firstName valid, got %s", rs["firstName"])
	}
	if rs.Reason("lastName") != "Last name is required" {
		t.Errorf("expected lastName error, got %q", rs.Reason("lastName"))
	}
	if rs.OK() {
		t.Error("expected results to be failing")
	}
}

func TestCheck_FirstFailureWins(t *testing.T) {
	values := Map{"email": ""}

	rs := NewCheck(values).
		Required("email", "Email is required").
		Format("email", EmailPattern, "Invalid email").
		Results()

	if got := rs.Reason("email"); got != "Email is required" {
		t.Errorf("expected required message to win, got %q", got)
	}
}

func TestCheck_ConfirmIgnoresIndividualValidity(t *testing.T) {
	tests := []struct {
		name     string
		password string
		confirm  string
	}{
		{"both valid but different", "longenough1", "longenough2"},
		{"password too short", "short", "other"},
		{"confirm empty", "longenough1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := Map{"password": tt.password, "confirmPassword": tt.confirm}
			rs := NewCheck(values).
				Validate("password", MinLength(8)).
				Confirm("confirmPassword", "password", "Passwords do not match").
				Results()

			if rs["confirmPassword"].OK() {
				t.Error("expected confirmation error")
			}
		})
	}
}

func TestCheck_RequiredIf(t *testing.T) {
	bicycle := Map{"vehicleType": "Bicycle"}
	rs := NewCheck(bicycle).
		RequiredIf("vehicleNumber", bicycle["vehicleType"] != "Bicycle", "Vehicle number is required").
		Results()
	if !rs["vehicleNumber"].OK() {
		t.Errorf("expected vehicleNumber optional for bicycles, got %s", rs["vehicleNumber"])
	}

	moto := Map{"vehicleType": "Motorcycle"}
	rs = NewCheck(moto).
		RequiredIf("vehicleNumber", moto["vehicleType"] != "Bicycle", "Vehicle number is required").
		Results()
	if rs["vehicleNumber"].OK() {
		t.Error("expected vehicleNumber required for motorcycles")
	}
}

func TestCheck_Fields(t *testing.T) {
	fields := []Field{
		EmailField("email", "Email", WithRequired()),
		PhoneField("phone", "Phone number", WithRequired()),
		CheckboxField("acceptTerms", "Terms and conditions", WithRequired()),
		TextField("nickname", "Nickname"),
	}
	values := Map{"email": "not-an-email", "phone": "+254712345678", "acceptTerms": false}

	got := NewCheck(values).Fields(fields...).Results().Invalid()
	want := map[string]string{
		"email":       "Please enter a valid email address",
		"acceptTerms": "Terms and conditions must be accepted",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("invalid fields mismatch (-want +got):\n%s", diff)
	}
}

func TestResults_Merge(t *testing.T) {
	a := Results{"x": Invalid("bad"), "y": Valid()}
	b := Results{"x": Valid(), "y": Invalid("worse"), "z": Valid()}

	m := a.Merge(b)
	if m["x"].OK() {
		t.Error("expected failure in a to survive merge")
	}
	if m.Reason("y") != "worse" {
		t.Errorf("expected y to fail with 'worse', got %q", m.Reason("y"))
	}
	if !m.Checked("z") {
		t.Error("expected z to be present")
	}
}
