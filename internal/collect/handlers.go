package collect

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/netcollect/internal/plugin"
	"github.com/HerbHall/netcollect/internal/rrd"
	"github.com/HerbHall/netcollect/internal/server"
	"github.com/HerbHall/netcollect/pkg/collection"
)

// valuesRequest is the JSON body for POST /normalize and POST /samples.
type valuesRequest struct {
	Resource collection.Resource `json:"resource"`
	Values   map[string]string   `json:"values"`
}

// snmpRequest is the JSON body for POST /snmp.
type snmpRequest struct {
	Resource collection.Resource `json:"resource"`
	Target   string              `json:"target"`
}

type typeResponse struct {
	Name        string `json:"name"`
	Group       string `json:"group"`
	Kind        string `json:"kind"`
	Class       string `json:"class"`
	StorageType string `json:"storage_type"`
	OID         string `json:"oid,omitempty"`
}

type sampleResponse struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Metric  string `json:"metric"`
	Raw     string `json:"raw"`
	Value   string `json:"value"`
	Known   bool   `json:"known"`
	Outcome string `json:"outcome"`
	Persist bool   `json:"persist"`
}

type cycleResponse struct {
	Cycle     string              `json:"cycle"`
	Resource  collection.Resource `json:"resource"`
	Timestamp time.Time           `json:"timestamp"`
	Samples   []sampleResponse    `json:"samples"`
	Unmatched []string            `json:"unmatched,omitempty"`
	Persisted *rrd.Result         `json:"persisted,omitempty"`
}

type seriesResponse struct {
	Resource  collection.ResourceID `json:"resource"`
	Attribute string                `json:"attribute"`
	From      time.Time             `json:"from"`
	To        time.Time             `json:"to"`
	Points    []rrd.Point           `json:"points"`
}

// Routes implements plugin.Plugin.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/types", Handler: m.handleTypes},
		{Method: "POST", Path: "/normalize", Handler: m.handleNormalize},
		{Method: "POST", Path: "/samples", Handler: m.handleSamples},
		{Method: "GET", Path: "/series", Handler: m.handleSeries},
		{Method: "GET", Path: "/sources/{resource}", Handler: m.handleSources},
		{Method: "POST", Path: "/snmp", Handler: m.handleSNMP},
		{Method: "GET", Path: "/stream", Handler: m.handleStream},
	}
}

// handleTypes lists the active attribute type catalog.
//
//	@Summary		List attribute types
//	@Tags			collect
//	@Produce		json
//	@Success		200 {array} typeResponse
//	@Router			/collect/types [get]
func (m *Module) handleTypes(w http.ResponseWriter, _ *http.Request) {
	cat := m.types.Current()
	oids := cat.OIDs()

	out := make([]typeResponse, 0, cat.Len())
	for _, g := range cat.Groups() {
		for _, t := range g.Types {
			out = append(out, typeResponse{
				Name:        t.Name(),
				Group:       g.Name,
				Kind:        t.Kind(),
				Class:       t.Class().String(),
				StorageType: t.StorageType(),
				OID:         oids[t.Name()],
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleNormalize normalizes submitted values without storing them.
//
//	@Summary		Normalize values
//	@Description	Resolves each value against the attribute type catalog and returns its numeric form. Nothing is stored.
//	@Tags			collect
//	@Accept			json
//	@Produce		json
//	@Param			body body valuesRequest true "Resource and raw values"
//	@Success		200 {object} cycleResponse
//	@Failure		400 {object} server.Problem
//	@Failure		422 {object} server.Problem
//	@Router			/collect/normalize [post]
func (m *Module) handleNormalize(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValues(w, r)
	if !ok {
		return
	}
	c, err := m.Normalize(r.Context(), req.Resource, req.Values)
	if err != nil {
		m.writeCycleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCycleResponse(c))
}

// handleSamples normalizes submitted values and writes them to the archive.
//
//	@Summary		Store samples
//	@Tags			collect
//	@Accept			json
//	@Produce		json
//	@Param			body body valuesRequest true "Resource and raw values"
//	@Success		201 {object} cycleResponse
//	@Failure		400 {object} server.Problem
//	@Failure		422 {object} server.Problem
//	@Failure		500 {object} server.Problem
//	@Router			/collect/samples [post]
func (m *Module) handleSamples(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValues(w, r)
	if !ok {
		return
	}
	c, err := m.Collect(r.Context(), req.Resource, req.Values)
	if err != nil {
		m.writeCycleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCycleResponse(c))
}

// handleSeries returns archived points for one data source. Unknown points
// are returned with a null value.
//
//	@Summary		Fetch series
//	@Tags			collect
//	@Produce		json
//	@Param			resource	query	string	true	"Resource ID"
//	@Param			attribute	query	string	true	"Attribute name"
//	@Param			from		query	string	false	"RFC 3339 start (default: archive span before to)"
//	@Param			to			query	string	false	"RFC 3339 end (default: now)"
//	@Success		200 {object} seriesResponse
//	@Failure		400 {object} server.Problem
//	@Router			/collect/series [get]
func (m *Module) handleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resource := collection.ResourceID(q.Get("resource"))
	attribute := q.Get("attribute")
	if resource == "" || attribute == "" {
		server.BadRequest(w, "resource and attribute are required", r.URL.Path)
		return
	}

	to := m.now()
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			server.BadRequest(w, "to must be an RFC 3339 timestamp", r.URL.Path)
			return
		}
		to = t
	}
	cfg := m.archive.Config()
	from := to.Add(-cfg.Step * time.Duration(cfg.Rows))
	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			server.BadRequest(w, "from must be an RFC 3339 timestamp", r.URL.Path)
			return
		}
		from = t
	}
	if from.After(to) {
		server.BadRequest(w, "from must not be after to", r.URL.Path)
		return
	}

	points, err := m.archive.Fetch(r.Context(), resource, attribute, from, to)
	if err != nil {
		m.logger.Error("fetch series failed", zap.String("resource", string(resource)),
			zap.String("attribute", attribute), zap.Error(err))
		server.InternalError(w, "failed to fetch series", r.URL.Path)
		return
	}
	if points == nil {
		points = []rrd.Point{}
	}
	writeJSON(w, http.StatusOK, seriesResponse{
		Resource:  resource,
		Attribute: attribute,
		From:      from,
		To:        to,
		Points:    points,
	})
}

// handleSources lists the data sources archived for a resource.
//
//	@Summary		List data sources
//	@Tags			collect
//	@Produce		json
//	@Param			resource path string true "Resource ID"
//	@Success		200 {array} rrd.Source
//	@Router			/collect/sources/{resource} [get]
func (m *Module) handleSources(w http.ResponseWriter, r *http.Request) {
	resource := collection.ResourceID(r.PathValue("resource"))
	sources, err := m.archive.Sources(r.Context(), resource)
	if err != nil {
		m.logger.Error("list sources failed", zap.String("resource", string(resource)), zap.Error(err))
		server.InternalError(w, "failed to list data sources", r.URL.Path)
		return
	}
	if sources == nil {
		sources = []rrd.Source{}
	}
	writeJSON(w, http.StatusOK, sources)
}

// handleSNMP polls an SNMP agent once for every catalog type with an OID and
// stores the result.
//
//	@Summary		Collect over SNMP
//	@Tags			collect
//	@Accept			json
//	@Produce		json
//	@Param			body body snmpRequest true "Resource and agent address"
//	@Success		201 {object} cycleResponse
//	@Failure		400 {object} server.Problem
//	@Failure		422 {object} server.Problem
//	@Failure		502 {object} server.Problem
//	@Router			/collect/snmp [post]
func (m *Module) handleSNMP(w http.ResponseWriter, r *http.Request) {
	var req snmpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if req.Resource.ID == "" || req.Target == "" {
		server.BadRequest(w, "resource.id and target are required", r.URL.Path)
		return
	}
	c, err := m.CollectSNMP(r.Context(), req.Resource, req.Target)
	if err != nil {
		m.writeCycleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCycleResponse(c))
}

func decodeValues(w http.ResponseWriter, r *http.Request) (valuesRequest, bool) {
	var req valuesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return req, false
	}
	if req.Resource.ID == "" {
		server.BadRequest(w, "resource.id is required", r.URL.Path)
		return req, false
	}
	if len(req.Values) == 0 {
		server.BadRequest(w, "values must not be empty", r.URL.Path)
		return req, false
	}
	return req, true
}

func (m *Module) writeCycleError(w http.ResponseWriter, r *http.Request, err error) {
	var agentErr *agentError
	switch {
	case errors.Is(err, ErrNoMatch):
		server.Unprocessable(w, err.Error(), r.URL.Path)
	case errors.As(err, &agentErr):
		m.logger.Warn("agent query failed", zap.Error(err))
		server.BadGateway(w, err.Error(), r.URL.Path)
	default:
		m.logger.Error("collection cycle failed", zap.Error(err))
		server.InternalError(w, "collection cycle failed", r.URL.Path)
	}
}

func newCycleResponse(c *Cycle) cycleResponse {
	samples := make([]sampleResponse, 0, len(c.Samples))
	for _, s := range c.Samples {
		samples = append(samples, sampleResponse{
			Name:    s.Name,
			Type:    s.Type,
			Metric:  s.Metric,
			Raw:     s.Raw,
			Value:   s.Value.String(),
			Known:   s.Value.Known(),
			Outcome: s.Outcome.String(),
			Persist: s.Persist,
		})
	}
	return cycleResponse{
		Cycle:     c.ID,
		Resource:  c.Resource,
		Timestamp: c.At,
		Samples:   samples,
		Unmatched: c.Unmatched,
		Persisted: c.Persisted,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
