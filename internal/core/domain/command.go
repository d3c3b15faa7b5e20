package domain

const (
	BUTTON_ID_REFRESH = "refresh"
)

// RefreshInverterRequest triggers an out of schedule poll.
type RefreshInverterRequest struct {
	ActorRequestMixIn
}

type RefreshInverterResponse struct {
	ActorResponseMixIn
}

func CommandToRequest(deviceId string) ActorRequest {
	switch deviceId {
	case BUTTON_ID_REFRESH:
		return RefreshInverterRequest{}
	}
	return nil
}
