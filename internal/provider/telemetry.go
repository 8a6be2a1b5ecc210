package provider

import "github.com/fxamacker/cbor/v2"

// TelemetryFrameSchema identifies CBOR Frame v1, the wire shape
// written to a worker's telemetry ring once per emitted tick.
const TelemetryFrameSchema = "telemetry-frame/v1"

// TelemetryFrame is one CBOR-encoded telemetry record. Field order is
// declaration order: cbor/v2 preserves it, so every frame's encoded
// key order is deterministic the same way CBORSummary's is.
type TelemetryFrame struct {
	Schema string `cbor:"schema"`
	WorkerID string `cbor:"worker_id"`
	Role string `cbor:"role"`
	Seq uint64 `cbor:"seq"`
	EmittedMs uint64 `cbor:"emitted_ms"`
	Payload map[string]any `cbor:"payload"`
}

// EncodeTelemetryFrame renders one CBOR Frame v1 record ready to
// append to a worker's ring.
func EncodeTelemetryFrame(workerID, role string, seq, emittedMs uint64, payload map[string]any) ([]byte, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	return cbor.Marshal(TelemetryFrame{
		Schema: TelemetryFrameSchema,
		WorkerID: workerID,
		Role: role,
		Seq: seq,
		EmittedMs: emittedMs,
		Payload: payload,
	})
}

// DecodeTelemetryFrame parses one CBOR Frame v1 record, for readers
// (tests, the replay path) that need the structured fields back.
func DecodeTelemetryFrame(data []byte) (TelemetryFrame, error) {
	var f TelemetryFrame
	err := cbor.Unmarshal(data, &f)
	return f, err
}
