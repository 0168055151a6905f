package enums

// CartMode names which cart is active: the locally persisted guest cart or
// the server-backed account cart.
type CartMode string

const (
	CartModeGuest   CartMode = "guest"
	CartModeAccount CartMode = "account"
)

// String implements fmt.Stringer.
func (c CartMode) String() string {
	return string(c)
}
