package types

// Numeric reply codes shared by every request/response operation.
// The same code keeps the same meaning across operations.
const (
	CodeOK             = 100 // success
	CodeNotAuthorized  = 101 // not logged in, foreign order, generic order failure
	CodeUserConflict   = 102 // duplicate user / already logged / user not found
	CodeMalformed      = 103 // malformed request or other error
	CodeUserLoggedIn   = 104 // credential update refused while logged in
	CodeCredentialsErr = 105 // other credential update error
)

// InvalidOrderID is returned by order insertion when validation fails
const InvalidOrderID int64 = -1

// DefaultMarketPrice seeds the last-traded price before any trade
// has ever executed (58 000 USD in mUSD).
const DefaultMarketPrice int64 = 58_000_000
