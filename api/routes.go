package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// PredictionsEndpoint is the endpoint for creating and listing predictions
	PredictionsEndpoint = "/predictions"
	// PredictionEndpoint is the endpoint to get a single prediction
	PredictionURLParam = "predictionId"
	PredictionEndpoint = "/predictions/{" + PredictionURLParam + "}"
	// PredictionCountsEndpoint is the endpoint to get the encrypted counter handles
	PredictionCountsEndpoint = "/predictions/{" + PredictionURLParam + "}/counts"
	// PredictionVotedEndpoint is the endpoint to check whether an address voted
	AddressURLParam         = "address"
	PredictionVotedEndpoint = "/predictions/{" + PredictionURLParam + "}/voted/{" + AddressURLParam + "}"
	// PredictionCloseEndpoint is the endpoint to close a prediction
	PredictionCloseEndpoint = "/predictions/{" + PredictionURLParam + "}/close"
	// PredictionResultsEndpoint is the endpoint to get the revealed tally
	PredictionResultsEndpoint = "/predictions/{" + PredictionURLParam + "}/results"
	// VotesEndpoint is the endpoint for submitting a vote
	VotesEndpoint = "/votes"
	// EventsEndpoint is the endpoint to fetch the audit log
	EventsEndpoint = "/events"
)
