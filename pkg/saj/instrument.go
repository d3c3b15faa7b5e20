package saj

import (
	"time"

	"go.uber.org/zap"
)

const (
	EndpointInfo   = "info"
	EndpointStatus = "status"
)

type Instrument struct {
	RecordTime func(endpoint string, duration time.Duration)
}

type RecordTimer struct {
	start      time.Time
	endpoint   string
	instrument *Instrument
}

func (i *Instrument) StartTimer(endpoint string) RecordTimer {
	return RecordTimer{
		start:      time.Now(),
		endpoint:   endpoint,
		instrument: i,
	}
}

func (t RecordTimer) Stop() {
	if t.instrument != nil && t.instrument.RecordTime != nil {
		t.instrument.RecordTime(t.endpoint, time.Since(t.start))
	}
}

func CreateZapInstrument(logger *zap.Logger) *Instrument {
	return &Instrument{
		RecordTime: func(endpoint string, duration time.Duration) {
			logger.Debug("saj request", zap.String("endpoint", endpoint), zap.Duration("duration", duration))
		},
	}
}

// Chain calls every instrument in order.
func Chain(instruments ...*Instrument) *Instrument {
	return &Instrument{
		RecordTime: func(endpoint string, duration time.Duration) {
			for _, i := range instruments {
				if i != nil && i.RecordTime != nil {
					i.RecordTime(endpoint, duration)
				}
			}
		},
	}
}
