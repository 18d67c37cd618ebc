package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/TamChouWeng/my-asset-sub000/internal/derive"
	"github.com/TamChouWeng/my-asset-sub000/internal/export"
	"github.com/TamChouWeng/my-asset-sub000/internal/id"
	"github.com/TamChouWeng/my-asset-sub000/internal/importer"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
	"github.com/TamChouWeng/my-asset-sub000/internal/store"
)

// maxBody bounds request bodies, import files included.
const maxBody = 8 << 20

func (s *server) currency(r *http.Request) string {
	if c := strings.TrimSpace(r.URL.Query().Get("currency")); c != "" {
		return strings.ToUpper(c)
	}
	return s.opts.Currency
}

// view reads q, type, sort, dir, page and size into a view state.
func (s *server) view(r *http.Request, kind derive.ViewKind) (derive.ViewState, error) {
	q := r.URL.Query()
	v := derive.NewView(kind, s.opts.PageSize)
	v.Search = q.Get("q")

	typ, err := typeFilter(q.Get("type"))
	if err != nil {
		return v, err
	}
	v.Type = typ
	if k := q.Get("sort"); k != "" {
		key, err := derive.ParseSortKey(k)
		if err != nil {
			return v, badRequest{err}
		}
		dir, err := derive.ParseDirection(q.Get("dir"))
		if err != nil {
			return v, badRequest{err}
		}
		if dir == "" {
			dir = derive.Asc
		}
		v.Sort, v.Dir = key, dir
	}
	for name, dst := range map[string]*int{"page": &v.Page, "size": &v.PageSize} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return v, badRequest{fmt.Errorf("invalid %s %q", name, raw)}
		}
		*dst = n
	}
	if v.PageSize < 1 || v.PageSize > 500 {
		return v, badRequest{fmt.Errorf("size must be between 1 and 500")}
	}
	return v, nil
}

func typeFilter(raw string) (model.AssetType, error) {
	if raw == "" || strings.EqualFold(raw, string(derive.AllTypes)) {
		return derive.AllTypes, nil
	}
	typ, ok := model.ParseAssetType(raw)
	if !ok {
		return "", badRequest{fmt.Errorf("unknown asset type %q", raw)}
	}
	return typ, nil
}

func (s *server) listRecords(w http.ResponseWriter, r *http.Request) {
	v, err := s.view(r, derive.ViewAll)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPage(s.opts.Session.Engine().List(s.currency(r), v)))
}

func decodeRecord(r *http.Request) (model.Record, error) {
	var in recordInput
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return model.Record{}, badRequest{fmt.Errorf("decoding record: %w", err)}
	}
	return in.record()
}

func (s *server) createRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rec.Currency == "" {
		rec.Currency = s.currency(r)
	}
	saved, err := s.opts.Session.Add(r.Context(), rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.changed(r.Context(), "Add %s %s", saved.Type, saved.Name)
	writeJSON(w, http.StatusCreated, toJSON(saved))
}

func (s *server) resolve(r *http.Request) (string, error) {
	recordID, err := s.opts.Session.Resolve(chi.URLParam(r, "id"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}
	return recordID, nil
}

func (s *server) replaceRecord(w http.ResponseWriter, r *http.Request) {
	recordID, err := s.resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rec.Currency == "" {
		prev, err := s.opts.Session.Get(recordID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		rec.Currency = prev.CurrencyCode()
	}
	saved, err := s.opts.Session.Update(r.Context(), recordID, model.ReplacePatch(rec))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.changed(r.Context(), "Edit %s %s", saved.Name, id.Short(recordID))
	writeJSON(w, http.StatusOK, toJSON(saved))
}

func (s *server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	recordID, err := s.resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.opts.Session.Delete(r.Context(), recordID); err != nil {
		writeError(w, r, err)
		return
	}
	s.changed(r.Context(), "Delete record %s", id.Short(recordID))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) deleteRecords(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&body); err != nil {
		writeError(w, r, badRequest{fmt.Errorf("decoding ids: %w", err)})
		return
	}
	n, err := s.opts.Session.DeleteMany(r.Context(), body.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if n > 0 {
		s.changed(r.Context(), "Delete %d records", n)
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *server) dashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := typeFilter(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Session.Engine().Dashboard(s.currency(r), filter))
}

type propertyJSON struct {
	Currency   string   `json:"currency"`
	Property   string   `json:"property"`
	Properties []string `json:"properties"`
	derive.CashFlow
	Records pageJSON `json:"records"`
}

func (s *server) property(w http.ResponseWriter, r *http.Request) {
	v, err := s.view(r, derive.ViewProperty)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep := s.opts.Session.Engine().Property(s.currency(r), r.URL.Query().Get("name"), v)
	writeJSON(w, http.StatusOK, propertyJSON{
		Currency:   rep.Currency,
		Property:   rep.Property,
		Properties: rep.Properties,
		CashFlow:   rep.CashFlow,
		Records:    toPage(rep.Records),
	})
}

type fixedDepositJSON struct {
	Currency string                     `json:"currency"`
	Summary  derive.FixedDepositSummary `json:"summary"`
	Records  pageJSON                   `json:"records"`
}

func (s *server) fixedDeposits(w http.ResponseWriter, r *http.Request) {
	v, err := s.view(r, derive.ViewFixedDeposit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep := s.opts.Session.Engine().FixedDeposits(s.currency(r), v)
	writeJSON(w, http.StatusOK, fixedDepositJSON{
		Currency: rep.Currency,
		Summary:  rep.Summary,
		Records:  toPage(rep.Records),
	})
}

func (s *server) export(w http.ResponseWriter, r *http.Request) {
	records := derive.Partition(s.opts.Session.Records(), s.currency(r))
	var buf bytes.Buffer
	if err := export.Write(&buf, records); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(s.opts.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type importJSON struct {
	Candidates []candidateJSON `json:"candidates"`
	Committed  bool            `json:"committed"`
	Inserted   []recordJSON    `json:"inserted,omitempty"`
	Skipped    int             `json:"skipped"`
}

func (s *server) importCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = (&importer.HistoryParser{}).Format()
	}
	parser := s.opts.Registry.Get(format)
	if parser == nil {
		writeError(w, r, badRequest{fmt.Errorf("unknown import format %q (want one of %s)", format, strings.Join(s.opts.Registry.Formats(), ", "))})
		return
	}
	commit, _ := strconv.ParseBool(q.Get("commit"))
	allowDup, _ := strconv.ParseBool(q.Get("allow_duplicates"))

	cands, err := importer.Read(io.LimitReader(r.Body, maxBody), parser, s.currency(r), s.opts.Session.Records())
	if err != nil {
		writeError(w, r, badRequest{err})
		return
	}
	resp := importJSON{Candidates: toCandidates(cands)}
	if commit {
		res, err := importer.Commit(r.Context(), s.opts.Session, cands, allowDup)
		if len(res.Inserted) > 0 {
			s.changed(r.Context(), "Import %d records", len(res.Inserted))
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.Committed = true
		resp.Inserted = toJSONs(res.Inserted)
		resp.Skipped = res.Skipped
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) scanMaturity(w http.ResponseWriter, r *http.Request) {
	matured, err := s.opts.Session.ScanMaturity(r.Context())
	if len(matured) > 0 {
		s.changed(r.Context(), "Mature %d fixed deposits", len(matured))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if matured == nil {
		matured = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"matured": matured})
}
