package api

const (
	ParameterOrderID = "id"
	ParameterAddress = "address"
	ParameterRuneID  = "runeId"

	QueryParameterAddress = "address"
	QueryParameterRuneID  = "runeId"
	QueryParameterKind    = "kind"
	QueryParameterStatus  = "status"
)

const (
	// RouteHealth is the liveness probe.
	// GET returns 200 while the server runs.
	RouteHealth = "/health"

	// RouteMetrics serves the prometheus registry.
	RouteMetrics = "/metrics"

	// RouteFees is the route for the current fee-rate presets.
	// GET returns the latest snapshot, or the fallback rate before the first poll.
	RouteFees = "/v1/fees"

	// RouteOrdersBTC builds a BTC stake.
	// POST records the order in the ledger and returns the unsigned commit PSBT.
	RouteOrdersBTC = "/v1/orders/btc"

	// RouteOrdersRunes builds a rune stake.
	// POST records the order in the ledger and returns the unsigned commit PSBT.
	RouteOrdersRunes = "/v1/orders/runes"

	// RouteOrders lists ledger orders.
	// Query parameters: "address", "runeId", "kind", "status"
	RouteOrders = "/v1/orders"

	// RouteOrder is the route for a single order.
	// GET returns the ledger record.
	RouteOrder = "/v1/orders/:" + ParameterOrderID

	// RouteOrderStatus moves an order through its status machine.
	// PUT takes the target status, an optional reason and commit txid.
	RouteOrderStatus = "/v1/orders/:" + ParameterOrderID + "/status"

	// RouteUnlock builds the reveal that returns a locked stake.
	// POST takes a commit transaction, an inclusion proof or a ledger order
	// with its locked output.
	RouteUnlock = "/v1/unlock"

	// RoutePayloadDecode reads the staking payload of a transaction or script.
	RoutePayloadDecode = "/v1/payload/decode"

	// RouteBroadcast pushes a signed transaction to the network.
	RouteBroadcast = "/v1/tx/broadcast"

	// RouteUsers registers a staker.
	RouteUsers = "/v1/users"

	// RouteUser returns a registered staker.
	RouteUser = "/v1/users/:" + ParameterAddress

	// RouteUserBlock blocks a staker for good.
	RouteUserBlock = "/v1/users/:" + ParameterAddress + "/block"

	// RouteRunes lists (GET) or adds (POST) runes accepted for staking.
	RouteRunes = "/v1/runes"

	// RouteRuneStatus activates or deactivates a listed rune.
	RouteRuneStatus = "/v1/runes/:" + ParameterRuneID + "/status"

	// RouteBlocksSeed stores the first header of the known chain.
	RouteBlocksSeed = "/v1/blocks/seed"

	// RouteBlocks appends headers to the known chain.
	RouteBlocks = "/v1/blocks"
)
