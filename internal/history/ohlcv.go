// Package history fetches historical OHLCV candles over the client's RPC
// path and persists them to a sqlite-backed store.
package history

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sugawarayuuta/sonnet"

	deribit "github.com/QuantDreamGit/HFT-Deribit"
	"github.com/QuantDreamGit/HFT-Deribit/internal/dispatch"
	"github.com/QuantDreamGit/HFT-Deribit/internal/protocol"
)

// OHLCV is one candle.
type OHLCV struct {
	TsMs   int64   // candle open time, milliseconds since epoch
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Cost   float64
}

// chartResult mirrors the public/get_tradingview_chart_data result arrays.
type chartResult struct {
	Ticks  []int64   `json:"ticks"`
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []float64 `json:"volume"`
	Cost   []float64 `json:"cost"`
	Status string    `json:"status"`
}

const (
	chunkSize  = 1000
	retryDelay = 200 * time.Millisecond
)

// chunkTimeout is a variable so tests can shorten the wait.
var chunkTimeout = 5 * time.Second

// chunkResult carries one decoded chunk from the dispatch goroutine back to
// Fetch. The handler never touches Fetch's accumulator directly: a response
// arriving after Fetch gave up lands in the buffered channel and is dropped
// with it.
type chunkResult struct {
	candles []OHLCV
	err     error
}

// ResolutionToMs converts a chart resolution to its candle width in
// milliseconds. Supported: 1, 5, 15, 60 (minutes) and 1D.
func ResolutionToMs(r string) (int64, error) {
	switch r {
	case "1":
		return 60_000, nil
	case "5":
		return 5 * 60_000, nil
	case "15":
		return 15 * 60_000, nil
	case "60":
		return 60 * 60_000, nil
	case "1D":
		return 24 * 60 * 60_000, nil
	}
	return 0, fmt.Errorf("history: unsupported resolution %q", r)
}

// Fetch retrieves exactly n candles for instrument at the given resolution,
// walking backwards from now in chunks of up to 1000. Rate-limit refusals
// are retried after a short delay; a chunk that times out or makes no
// progress ends the walk with whatever was collected.
func Fetch(c deribit.Client, log *slog.Logger, instrument, resolution string, n int) ([]OHLCV, error) {
	if log == nil {
		log = slog.Default()
	}
	resMs, err := ResolutionToMs(resolution)
	if err != nil {
		return nil, err
	}

	out := make([]OHLCV, 0, n+chunkSize)
	endTS := time.Now().UnixMilli()
	lastLen := -1

	for len(out) < n {
		remaining := n - len(out)
		batch := remaining
		if batch > chunkSize {
			batch = chunkSize
		}
		// The window is inclusive: batch candles span batch-1 intervals.
		startTS := endTS - int64(batch-1)*resMs

		done := make(chan chunkResult, 1)
		c.RegisterRPC(deribit.ChartRequestID, dispatch.RPCHandler{
			OnSuccess: func(pm *dispatch.ParsedMessage) {
				var res chartResult
				if err := sonnet.Unmarshal(pm.Result, &res); err != nil {
					done <- chunkResult{err: fmt.Errorf("history: decode chart result: %w", err)}
					return
				}
				candles := make([]OHLCV, 0, len(res.Ticks))
				for i, ts := range res.Ticks {
					if i >= len(res.Open) || i >= len(res.High) || i >= len(res.Low) ||
						i >= len(res.Close) || i >= len(res.Volume) || i >= len(res.Cost) {
						break
					}
					candles = append(candles, OHLCV{
						TsMs:   ts,
						Open:   res.Open[i],
						High:   res.High[i],
						Low:    res.Low[i],
						Close:  res.Close[i],
						Volume: res.Volume[i],
						Cost:   res.Cost[i],
					})
				}
				done <- chunkResult{candles: candles}
			},
			OnError: func(pm *dispatch.ParsedMessage) {
				done <- chunkResult{err: fmt.Errorf("history: chart request failed: %d %s", pm.ErrorCode, pm.ErrorMsg)}
			},
		})

		params := protocol.ChartParams{
			InstrumentName: instrument,
			Resolution:     resolution,
			StartTimestamp: startTS,
			EndTimestamp:   endTS,
		}
		if !c.SendRPC(deribit.ChartRequestID, deribit.MethodChartData, params) {
			time.Sleep(retryDelay)
			continue
		}

		select {
		case cr := <-done:
			if cr.err != nil {
				return sortAndTrim(out, n), cr.err
			}
			out = append(out, cr.candles...)
		case <-time.After(chunkTimeout):
			log.Warn("chart chunk timed out", "instrument", instrument, "collected", len(out))
			return sortAndTrim(out, n), nil
		}

		if len(out) == lastLen {
			log.Debug("no further candles available", "collected", len(out))
			break
		}
		lastLen = len(out)

		// Step 1ms before the chunk start so windows never overlap.
		endTS = startTS - 1
	}

	return sortAndTrim(out, n), nil
}

// sortAndTrim orders candles chronologically and drops the oldest overshoot
// so at most n remain.
func sortAndTrim(out []OHLCV, n int) []OHLCV {
	sort.Slice(out, func(i, j int) bool { return out[i].TsMs < out[j].TsMs })
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
