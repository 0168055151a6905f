package enums

// MigrationState tracks the guest-to-account reconciliation lifecycle.
type MigrationState string

const (
	MigrationStateIdle      MigrationState = "idle"
	MigrationStateMigrating MigrationState = "migrating"
)

// String implements fmt.Stringer.
func (m MigrationState) String() string {
	return string(m)
}
