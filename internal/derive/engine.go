package derive

import (
	"fmt"
	"strings"
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/TamChouWeng/my-asset-sub000/internal/model"
)

// Dashboard is the headline view of one currency partition.
type Dashboard struct {
	Currency      string              `json:"currency"`
	Filter        model.AssetType     `json:"filter"`
	TotalValue    decimal.Decimal     `json:"total_value"`
	TopAsset      Slice               `json:"top_asset"`
	Allocation    []Slice             `json:"allocation"`
	RecordCount   int                 `json:"record_count"`
	FixedDeposits FixedDepositSummary `json:"fixed_deposits"`
	Currencies    []string            `json:"currencies"`
}

// PropertyReport is the cash flow and list view of property records.
type PropertyReport struct {
	Currency   string   `json:"currency"`
	Property   string   `json:"property"`
	Properties []string `json:"properties"`
	CashFlow
	Records Page `json:"records"`
}

// FixedDepositReport is the summary and list view of fixed deposits.
type FixedDepositReport struct {
	Currency string              `json:"currency"`
	Summary  FixedDepositSummary `json:"summary"`
	Records  Page                `json:"records"`
}

// Engine memoizes derivations over one record set. Results are cached per
// record-set version and parameter set; replacing the records bumps the
// version and flushes the cache. Returned values are shared between
// callers and must not be modified.
type Engine struct {
	mu      sync.RWMutex
	records []model.Record
	version uint64
	cache   *cache.Cache
}

// NewEngine returns an engine over records.
func NewEngine(records []model.Record) *Engine {
	e := &Engine{cache: cache.New(cache.NoExpiration, 0)}
	e.SetRecords(records)
	return e
}

// SetRecords replaces the record set.
func (e *Engine) SetRecords(records []model.Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = cloneAll(records)
	e.version++
	e.cache.Flush()
}

// Version identifies the current record set.
func (e *Engine) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// Records returns a copy of the current record set.
func (e *Engine) Records() []model.Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneAll(e.records)
}

// CacheSize is the number of memoized results.
func (e *Engine) CacheSize() int {
	return e.cache.ItemCount()
}

// memo returns the cached value for key or computes and stores it. The
// read lock is held throughout so a concurrent SetRecords cannot interleave.
func memo[T any](e *Engine, key string, compute func([]model.Record) T) T {
	e.mu.RLock()
	defer e.mu.RUnlock()
	full := fmt.Sprintf("%d|%s", e.version, key)
	if v, ok := e.cache.Get(full); ok {
		return v.(T)
	}
	v := compute(e.records)
	e.cache.Set(full, v, cache.NoExpiration)
	return v
}

func normCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return model.DefaultCurrency
	}
	return c
}

// Dashboard returns the headline figures of currency under filter.
func (e *Engine) Dashboard(currency string, filter model.AssetType) Dashboard {
	currency = normCurrency(currency)
	if filter == "" {
		filter = AllTypes
	}
	return memo(e, fmt.Sprintf("dashboard|%s|%s", currency, filter), func(all []model.Record) Dashboard {
		part := Partition(all, currency)
		return Dashboard{
			Currency:      currency,
			Filter:        filter,
			TotalValue:    TotalValue(part, filter)[currency],
			TopAsset:      TopAsset(part, filter),
			Allocation:    Allocation(part, filter),
			RecordCount:   Count(part),
			FixedDeposits: FixedDepositStats(part),
			Currencies:    Currencies(all),
		}
	})
}

// List returns the all-records view of currency.
func (e *Engine) List(currency string, v ViewState) Page {
	currency = normCurrency(currency)
	v.Kind = ViewAll
	return memo(e, fmt.Sprintf("list|%s|%+v", currency, v), func(all []model.Record) Page {
		return ApplyView(Partition(all, currency), v)
	})
}

// Property returns the cash flow and property view of currency, narrowed
// to property when it is not empty.
func (e *Engine) Property(currency, property string, v ViewState) PropertyReport {
	currency = normCurrency(currency)
	v.Kind = ViewProperty
	return memo(e, fmt.Sprintf("property|%s|%s|%+v", currency, property, v), func(all []model.Record) PropertyReport {
		part := Partition(all, currency)
		return PropertyReport{
			Currency:   currency,
			Property:   property,
			Properties: PropertyNames(part),
			CashFlow:   PropertyCashFlow(part, property),
			Records:    ApplyView(PropertyRecords(part, property), v),
		}
	})
}

// FixedDeposits returns the fixed-deposit summary and view of currency.
func (e *Engine) FixedDeposits(currency string, v ViewState) FixedDepositReport {
	currency = normCurrency(currency)
	v.Kind = ViewFixedDeposit
	return memo(e, fmt.Sprintf("fd|%s|%+v", currency, v), func(all []model.Record) FixedDepositReport {
		part := Partition(all, currency)
		return FixedDepositReport{
			Currency: currency,
			Summary:  FixedDepositStats(part),
			Records:  ApplyView(OfType(part, model.TypeFixedDeposit), v),
		}
	})
}

func cloneAll(records []model.Record) []model.Record {
	out := make([]model.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
