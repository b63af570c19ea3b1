package domain

// Side represents the direction of a simulated trade.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// PositionStatus represents the status of a simulated position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// RunMode represents the execution mode of the bot.
type RunMode string

const (
	ModeSimulated RunMode = "SIMULATED"
	ModeLive      RunMode = "LIVE"
)
