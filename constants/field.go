package constants

// Field is one of the six canonical invoice attributes.
type Field string

const (
	InvoiceNumber Field = "invoice_number"
	Date          Field = "date"
	Seller        Field = "seller"
	Buyer         Field = "buyer"
	TotalAmount   Field = "total_amount"
	Tax           Field = "tax"
)

// AllFields lists the fields in canonical output order.
var AllFields = []Field{
	InvoiceNumber,
	Date,
	Seller,
	Buyer,
	TotalAmount,
	Tax,
}

// Label is the human-readable label used in prompts and generated output.
func (f Field) Label() string {
	switch f {
	case InvoiceNumber:
		return "Invoice Number"
	case Date:
		return "Date"
	case Seller:
		return "Seller"
	case Buyer:
		return "Buyer"
	case TotalAmount:
		return "Total Amount"
	case Tax:
		return "Tax"
	}
	return string(f)
}

func AsStringSlice() []string {
	result := make([]string, len(AllFields))
	for i, f := range AllFields {
		result[i] = string(f)
	}
	return result
}
