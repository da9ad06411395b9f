package server

var hints = map[string]string{
	"tx":         "Unique identifier, like an invoice number, that groups items per transaction.",
	"item":       "Contains the names of the items you want to find rules for.",
	"confidence": "Filter rules by confidence.",
	"ignore":     "Things in your item list that might not be useful, like delivery charges.",
	"table": "If antecedents are A, B and consequents are C, people who buy A and B also frequently buy C. " +
		"Confidence is how often the rule has been found to be true. " +
		"Support is how frequently the itemset appears in the dataset.",
}
