package controller

import (
	"fmt"
	"net/http"

	"github.com/ant0ine/go-json-rest/rest"
	"github.com/pkg/errors"

	"github.com/ofcored/controller/of"
)

// ServeStatus starts the read-only status REST surface on addr (spec.md §6
// "[AMBIENT] Read-only status surface", §2.1): connected switches, each
// one's installed edge-table length, and the outstanding barrier count.
// Northbound policy control is never exposed here — that only ever goes
// through the App interface — so this cannot reintroduce a high-level
// policy language surface (a named Non-goal), matching
// network/controller.go's serveREST but trimmed to introspection-only
// routes.
func (c *Controller) ServeStatus(addr string) error {
	api := rest.NewApi()
	router, err := rest.MakeRouter(
		rest.Get("/api/v1/switches", c.listSwitches),
		rest.Get("/api/v1/switches/:dpid/edge-table", c.switchEdgeTable),
		rest.Get("/api/v1/barriers", c.listBarriers),
	)
	if err != nil {
		return errors.Wrap(err, "controller: building status REST router")
	}
	api.SetApp(router)

	logger.Infof("status REST surface listening on %v", addr)
	return http.ListenAndServe(addr, api.MakeHandler())
}

type switchStatus struct {
	DPID       string `json:"dpid"`
	NumBuffers uint32 `json:"num_buffers"`
	NumTables  uint8  `json:"num_tables"`
}

func (c *Controller) listSwitches(w rest.ResponseWriter, req *rest.Request) {
	var out []switchStatus
	for _, s := range c.sessions.All() {
		f := s.Features()
		out = append(out, switchStatus{
			DPID:       s.Id().String(),
			NumBuffers: f.NumBuffers,
			NumTables:  f.NumTables,
		})
	}
	w.WriteJson(&struct {
		Switches []switchStatus `json:"switches"`
	}{out})
}

func (c *Controller) switchEdgeTable(w rest.ResponseWriter, req *rest.Request) {
	var dpid of.SwitchId
	if _, err := fmt.Sscanf(req.PathParam("dpid"), "%v", &dpid); err != nil {
		writeStatusError(w, http.StatusBadRequest, errors.Wrap(err, "invalid dpid"))
		return
	}

	s := c.sessions.Get(dpid)
	if s == nil {
		writeStatusError(w, http.StatusNotFound, errors.Errorf("no session for switch %v", dpid))
		return
	}

	w.WriteJson(&struct {
		EdgeTableLength int `json:"edge_table_length"`
	}{len(s.InstalledEdge())})
}

func (c *Controller) listBarriers(w rest.ResponseWriter, req *rest.Request) {
	w.WriteJson(&struct {
		Outstanding int `json:"outstanding"`
	}{c.barriers.Outstanding()})
}

func writeStatusError(w rest.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	w.WriteJson(&struct {
		Error string `json:"error"`
	}{err.Error()})
}
