package webrtc

import (
	"context"
	"testing"
	"time"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"
	"streamlink/pkg/logger"

	"github.com/pion/rtcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_ReceiverReportFoldsIntoQuality(t *testing.T) {
	stats := newStatsController(time.Second, logger.NewNop())

	var got domain.NetworkStats
	var quality domain.ConnectionQuality
	stats.SetCallbacks(ports.StatsCallbacks{
		OnStats: func(q domain.ConnectionQuality, s domain.NetworkStats) {
			quality = q
			got = s
		},
	})

	stats.processRTCP([]rtcp.Packet{
		&rtcp.ReceiverReport{Reports: []rtcp.ReceptionReport{{
			FractionLost: 64,        // 25% loss
			Delay:        65536 / 4, // 250ms DLSR
		}}},
	})
	stats.addBytesSent(125_000)
	stats.emit(time.Now())

	assert.InDelta(t, 0.25, got.PacketLoss, 0.001)
	assert.Equal(t, 250*time.Millisecond, got.RTT)
	assert.Equal(t, 1000, got.BitrateKbps)
	assert.Equal(t, domain.QualityPoor, quality.Level, "heavy loss plus high RTT scores below 50")
}

func TestStats_NoFeedbackDefaultsToZero(t *testing.T) {
	stats := newStatsController(time.Second, logger.NewNop())

	var got domain.NetworkStats
	stats.SetCallbacks(ports.StatsCallbacks{
		OnStats: func(_ domain.ConnectionQuality, s domain.NetworkStats) { got = s },
	})
	stats.emit(time.Now())

	assert.Zero(t, got.PacketLoss)
	assert.Zero(t, got.RTT)
	assert.Zero(t, got.BitrateKbps)
}

func TestStats_BitrateUsesDeltaBetweenEmits(t *testing.T) {
	stats := newStatsController(time.Second, logger.NewNop())

	var rates []int
	stats.SetCallbacks(ports.StatsCallbacks{
		OnStats: func(_ domain.ConnectionQuality, s domain.NetworkStats) {
			rates = append(rates, s.BitrateKbps)
		},
	})

	stats.addBytesSent(12_500)
	stats.emit(time.Now())
	stats.emit(time.Now())

	require.Len(t, rates, 2)
	assert.Equal(t, 100, rates[0])
	assert.Equal(t, 0, rates[1], "second interval had no traffic")
}

func TestStats_StartStopIdempotent(t *testing.T) {
	stats := newStatsController(10*time.Millisecond, logger.NewNop())

	require.NoError(t, stats.Start(context.Background()))
	require.NoError(t, stats.Start(context.Background()))
	require.NoError(t, stats.Stop())
	require.NoError(t, stats.Stop())
	require.NoError(t, stats.Cleanup())
}
