package domain

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_SAJ          = "saj"
	ACTOR_ID_POLLER       = "poller"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

// ReadInverterRequest asks the saj actor for a fresh read. The response always
// carries the latest snapshot, even when the read failed.
type ReadInverterRequest struct {
	ActorRequestMixIn
}

type ReadInverterResponse struct {
	ActorResponseMixIn
	Snapshot InverterSnapshot
}

type GetInverterInfoRequest struct {
	ActorRequestMixIn
}

type GetInverterInfoResponse struct {
	ActorResponseMixIn
	Info InverterInfo
}

type GetInverterSnapshotRequest struct {
	ActorRequestMixIn
}

type GetInverterSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot InverterSnapshot
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
	Buttons []GenericButton
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
