package web

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitos/solana_trade_bot/internal/domain"
)

func TestOrderFilterFromQuery(t *testing.T) {
	filter := orderFilterFromQuery(url.Values{
		"wallet":     {"4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"},
		"status":     {"executed"},
		"start_time": {"1700000000"},
		"end_time":   {"2023-11-15T12:00:00Z"},
		"limit":      {"25"},
		"offset":     {"50"},
	})

	require.Equal(t, "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R", filter.WalletAddress)
	require.Equal(t, domain.OrderStatusExecuted, filter.Status)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), filter.StartTime)
	require.Equal(t, time.Date(2023, 11, 15, 12, 0, 0, 0, time.UTC), filter.EndTime)
	require.Equal(t, 25, filter.Limit)
	require.Equal(t, 50, filter.Offset)
}

func TestOrderFilterFromQueryDefaults(t *testing.T) {
	filter := orderFilterFromQuery(url.Values{})

	require.Empty(t, filter.WalletAddress)
	require.True(t, filter.StartTime.IsZero())
	require.True(t, filter.EndTime.IsZero())
	require.Zero(t, filter.Limit)

	// malformed times are ignored rather than failing the request
	filter = orderFilterFromQuery(url.Values{"start_time": {"yesterday"}})
	require.True(t, filter.StartTime.IsZero())
}
