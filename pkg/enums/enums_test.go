package enums

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "customer", want: RoleCustomer},
		{in: "Seller", want: RoleSeller},
		{in: " seller ", want: RoleSeller},
		{in: "admin", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseRole(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseRole(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestRoleOrDefault(t *testing.T) {
	if got := RoleOrDefault(""); got != RoleCustomer {
		t.Fatalf("expected customer default, got %q", got)
	}
	if got := RoleOrDefault("SELLER"); got != RoleSeller {
		t.Fatalf("expected seller, got %q", got)
	}
	if !RoleSeller.IsValid() || Role("guest").IsValid() {
		t.Fatalf("unexpected IsValid results")
	}
}
