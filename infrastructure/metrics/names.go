package metrics

const (
	ActiveConnections    = "realtime_active_connections"
	ConnectionsRejected  = "realtime_connections_rejected_total"
	RoomJoins            = "realtime_room_joins_total"
	RoomJoinsDenied      = "realtime_room_joins_denied_total"
	MessagesReceived     = "realtime_messages_received_total"
	MessagesSent         = "realtime_messages_sent_total"
	SlowConsumersDropped = "realtime_slow_consumers_dropped_total"
	ForcedDisconnects    = "realtime_forced_disconnects_total"
	HandlerPanics        = "realtime_handler_panics_total"
	AuthorizationLatency = "realtime_authorization_lookup_seconds"
	EmissionsBeforeReady = "realtime_emissions_before_ready_total"
	GoRoutines           = "realtime_runtime_goroutines"
	HeapAlloc            = "realtime_runtime_heap_alloc_bytes"
	TotalAlloc           = "realtime_runtime_total_alloc_bytes"
	GCCycles             = "realtime_runtime_gc_cycles"
	SysMemory            = "realtime_runtime_sys_bytes"
	HTTPRequests         = "http_requests_total"
	HTTPRequestDuration  = "http_request_duration_seconds"
)

// Register creates every instrument the service records into.
func Register(m Manager) {
	m.NewGauge(GoRoutines, "Number of goroutines")
	m.NewGauge(HeapAlloc, "Heap bytes allocated and in use")
	m.NewGauge(TotalAlloc, "Cumulative bytes allocated")
	m.NewGauge(GCCycles, "Completed GC cycles")
	m.NewGauge(SysMemory, "Bytes of memory obtained from the OS")

	m.NewCounter(HTTPRequests, "Total number of HTTP requests")
	m.NewHistogram(HTTPRequestDuration, "HTTP request duration in seconds",
		0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0)

	m.NewUpDownCounter(ActiveConnections, "Number of live websocket connections")
	m.NewCounter(ConnectionsRejected, "Handshakes rejected before upgrade")
	m.NewCounter(RoomJoins, "Room joins granted")
	m.NewCounter(RoomJoinsDenied, "Room joins refused by the authorization gate")
	m.NewCounter(MessagesReceived, "Inbound websocket events")
	m.NewCounter(MessagesSent, "Outbound websocket frames queued for delivery")
	m.NewCounter(SlowConsumersDropped, "Connections closed because their send buffer was full")
	m.NewCounter(ForcedDisconnects, "Connections terminated by moderation")
	m.NewCounter(HandlerPanics, "Panics recovered at the handler boundary")
	m.NewCounter(EmissionsBeforeReady, "Facade calls made before the transport was ready")
	m.NewHistogram(AuthorizationLatency, "Authorization lookup latency in seconds",
		0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0)
}
