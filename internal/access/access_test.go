package access

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"USER", RoleUser, false},
		{"ADMIN", RoleAdmin, false},
		{"admin", "", true},
		{"User", "", true},
		{"", "", true},
		{"SUPERUSER", "", true},
	}

	for _, tc := range cases {
		got, err := ParseRole(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseRole(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseRole(%q) = %q, expected %q", tc.in, got, tc.want)
		}
	}
}

func TestNewContext(t *testing.T) {
	admin := NewContext(1, RoleAdmin)
	if !admin.IsAdmin || admin.UserID != 1 || admin.Role != RoleAdmin {
		t.Errorf("admin context = %+v", admin)
	}

	user := NewContext(2, RoleUser)
	if user.IsAdmin {
		t.Error("USER context must not be admin")
	}
}

func TestResolveEffectiveOwner_NonAdminIgnoresTarget(t *testing.T) {
	ac := NewContext(7, RoleUser)

	for _, target := range []uint{0, 1, 7, 8, 99999} {
		if got := ResolveEffectiveOwner(ac, target); got != 7 {
			t.Errorf("target %d: got %d, expected caller id 7", target, got)
		}
	}
}

func TestResolveEffectiveOwner_Admin(t *testing.T) {
	ac := NewContext(1, RoleAdmin)

	if got := ResolveEffectiveOwner(ac, 42); got != 42 {
		t.Errorf("admin with target: got %d, expected 42", got)
	}
	if got := ResolveEffectiveOwner(ac, 0); got != 1 {
		t.Errorf("admin without target: got %d, expected self 1", got)
	}
}
