package usecase

import (
	"testing"
	"time"

	"fare-crawler-service/internal/domain/entity"
	"fare-crawler-service/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() *RecordExtractor {
	e := NewRecordExtractor(entity.DefaultListingSelectors(), logger.NewNopLogger(), newTestMetrics())
	e.now = func() time.Time { return time.Date(2024, 3, 1, 0, 12, 34, 567000000, time.Local) }
	return e
}

func TestExtractFullListing(t *testing.T) {
	e := newTestExtractor()
	node := listing(t, `
		<div class="airline-name">东方航空</div>
		<span class="plane-No">MU5101 空客320(中)</span>
		<div class="depart-box"><div class="time">08:00</div><div class="airport">虹桥国际机场T2</div></div>
		<div class="arrive-box"><div class="time">10:20</div><div class="airport">首都国际机场T2</div></div>
		<div class="transfer-info-group">直飞</div>
		<span class="price">¥1,234.50</span>`)

	record := e.Extract(node, "SHA", "BJS", "2024-03-05")

	require.Equal(t, entity.NotAvailable, record.Airline)
	require.Equal(t, "MU5101", record.LegIdentifiers)
	require.Equal(t, "虹桥国际机场T2", record.DepartureAirport)
	require.Equal(t, "08:00", record.DepartureTime)
	require.Equal(t, "首都国际机场T2", record.ArrivalAirport)
	require.Equal(t, "10:20", record.ArrivalTime)
	require.Equal(t, "直飞", record.TransferInfo)
	require.NotNil(t, record.Price)
	require.InDelta(t, 1234.50, *record.Price, 1e-9)
	require.Equal(t, "SHA", record.SearchDeparture)
	require.Equal(t, "BJS", record.SearchArrival)
	require.Equal(t, "2024-03-05", record.SearchDepartureDate)
	require.Equal(t, time.Date(2024, 3, 1, 0, 12, 34, 0, time.Local), record.CrawlTimestamp)
}

func TestExtractLegIdentifiers(t *testing.T) {
	tests := []struct {
		name    string
		markup  string
		want    string
		wantLen int
	}{
		{
			name:    "single marker keeps first token",
			markup:  `<span class="plane-No">MU5101 空客320(中)</span>`,
			want:    "MU5101",
			wantLen: 1,
		},
		{
			name:    "several markers joined in document order",
			markup:  `<span class="plane-No">MU5041 A320</span><span class="plane-No"> KE896	B777 </span><span class="plane-No">CX367</span>`,
			want:    "MU5041 + KE896 + CX367",
			wantLen: 3,
		},
		{
			name:    "blank markers are ignored",
			markup:  `<span class="plane-No">   </span><span class="plane-No">MF8501</span>`,
			want:    "MF8501",
			wantLen: 1,
		},
		{
			name:   "no markers",
			markup: `<div class="airline-name">东海航空</div>`,
			want:   entity.NotAvailable,
		},
	}

	e := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := e.Extract(listing(t, tt.markup), "SHA", "HKG", "2024-03-05")
			require.Equal(t, tt.want, record.LegIdentifiers)
			require.Len(t, record.Legs(), tt.wantLen)
		})
	}
}

func TestExtractMissingSections(t *testing.T) {
	e := newTestExtractor()
	node := listing(t, `
		<span class="plane-No">DZ6201</span>
		<div class="arrive-box"><div class="airport">宝安国际机场T3</div><div class="time">  </div></div>`)

	record := e.Extract(node, "SHA", "SZX", "2024-03-05")

	require.Equal(t, entity.NotAvailable, record.DepartureAirport)
	require.Equal(t, entity.NotAvailable, record.DepartureTime)
	require.Equal(t, "宝安国际机场T3", record.ArrivalAirport)
	require.Equal(t, entity.NotAvailable, record.ArrivalTime)
	require.Equal(t, entity.NotAvailable, record.TransferInfo)
	require.Nil(t, record.Price)
	require.Equal(t, float64(0), testutil.ToFloat64(e.metrics.PriceParseAnomalies))
}

func TestExtractStripsLayoutWhitespace(t *testing.T) {
	e := newTestExtractor()
	node := listing(t, `
		<span class="plane-No">MU5101</span>
		<div class="depart-box">
			<div class="time">
				08:00
			</div>
			<div class="airport">
				<span>首都国际机场</span>
				<span>T3</span>
			</div>
		</div>
		<div class="transfer-info-group">
			<span class="transfer-count">转1次</span>
			<div class="transfer-detail">
				上海 <em>2h</em>
			</div>
		</div>
		<span class="price">
			<dfn>¥</dfn>
			1,080
		</span>`)

	record := e.Extract(node, "PEK", "ICN", "2024-03-05")

	require.Equal(t, "首都国际机场T3", record.DepartureAirport)
	require.Equal(t, "08:00", record.DepartureTime)
	require.Equal(t, "转1次上海2h", record.TransferInfo)
	require.NotNil(t, record.Price)
	require.InDelta(t, 1080.0, *record.Price, 1e-9)
	require.Equal(t, float64(0), testutil.ToFloat64(e.metrics.PriceParseAnomalies))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{raw: "¥1,234.50", want: ptr(1234.50)},
		{raw: "￥980", want: ptr(980)},
		{raw: " ¥ 12,000 ", want: ptr(12000)},
		{raw: "1580", want: ptr(1580)},
		{raw: "N/A", want: nil},
		{raw: "", want: nil},
		{raw: "¥", want: nil},
		{raw: "¥1200起", want: nil},
		{raw: "NaN", want: nil},
		{raw: "Inf", want: nil},
		{raw: "1_000", want: nil},
		{raw: "1e3", want: nil},
		{raw: "0x10", want: nil},
		{raw: "1.2.3", want: nil},
		{raw: "-", want: nil},
		{raw: "¥.5", want: ptr(0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParsePrice(tt.raw)
			if tt.want == nil {
				require.False(t, ok)
				require.Nil(t, got)
				return
			}
			require.True(t, ok)
			require.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestExtractUnparseablePriceIsAnomaly(t *testing.T) {
	e := newTestExtractor()

	record := e.Extract(listing(t, `<span class="plane-No">MU1</span><span class="price">¥</span>`), "SHA", "HKG", "2024-03-05")
	require.Nil(t, record.Price)
	require.Equal(t, "MU1", record.LegIdentifiers)
	require.Equal(t, float64(1), testutil.ToFloat64(e.metrics.PriceParseAnomalies))

	record = e.Extract(listing(t, `<span class="price">N/A</span>`), "SHA", "HKG", "2024-03-05")
	require.Nil(t, record.Price)
	require.Equal(t, float64(1), testutil.ToFloat64(e.metrics.PriceParseAnomalies))
}

func TestExtractCanonicalisesSearchDate(t *testing.T) {
	e := newTestExtractor()
	node := listing(t, `<span class="plane-No">MU1</span>`)

	require.Equal(t, "2024-03-05", e.Extract(node, "SHA", "HKG", "2024-03-05").SearchDepartureDate)
	require.Equal(t, "2024-03-05", e.Extract(node, "SHA", "HKG", "2024-3-5").SearchDepartureDate)
	require.Equal(t, "March 5", e.Extract(node, "SHA", "HKG", "March 5").SearchDepartureDate)
}

func ptr(v float64) *float64 {
	return &v
}
