package checkout

const (
	DomesticCountry = "PK"
	// Domestic orders with a subtotal above this ship free.
	FreeShippingThreshold = 2000.0
	DomesticFee           = 500.0
	InternationalFee      = 2000.0
)

// ShippingCharge is the delivery fee for a destination country and cart
// subtotal. An unset country costs nothing until one is chosen.
func ShippingCharge(country string, subtotal float64) float64 {
	switch country {
	case "":
		return 0
	case DomesticCountry:
		if subtotal > FreeShippingThreshold {
			return 0
		}
		return DomesticFee
	default:
		return InternationalFee
	}
}
