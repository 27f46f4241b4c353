package domain

import "time"

// QualityLevel buckets a normalized connection score.
type QualityLevel string

const (
	QualityExcellent QualityLevel = "excellent"
	QualityGood      QualityLevel = "good"
	QualityPoor      QualityLevel = "poor"
	QualityUnknown   QualityLevel = "unknown"
)

// ConnectionQuality is the normalized link quality produced by folding
// heterogeneous backend statistics into one shape. No raw backend stat shape
// crosses this boundary.
type ConnectionQuality struct {
	Level QualityLevel
	Score float64 // 0-100
}

// NetworkStats carries the normalized media/link metrics. Backends that do
// not report a metric leave it at its zero value.
type NetworkStats struct {
	RTT         time.Duration
	PacketLoss  float64 // fraction, 0-1
	BitrateKbps int
	Width       int
	Height      int
	FrameRate   float64
	Timestamp   time.Time
}

// QualityFromStats buckets normalized stats into a ConnectionQuality. The
// score penalizes loss heavily and latency moderately.
func QualityFromStats(stats NetworkStats) ConnectionQuality {
	if stats.Timestamp.IsZero() {
		return ConnectionQuality{Level: QualityUnknown}
	}

	score := 100.0
	score -= stats.PacketLoss * 200 // 25% loss halves the score
	score -= float64(stats.RTT.Milliseconds()) / 10

	if score < 0 {
		score = 0
	}

	level := QualityPoor
	switch {
	case score >= 80:
		level = QualityExcellent
	case score >= 50:
		level = QualityGood
	}

	return ConnectionQuality{Level: level, Score: score}
}
