package params

// Query is everything the provider needs for one market-data request.
type Query struct {
	Symbols []string
	Params  *Values
}
