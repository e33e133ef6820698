package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/metoceanlab/metocean/internal/opsplan"
)

// windowsRequest is the payload of POST /api/windows. Times must already be
// filtered to the records satisfying the operational criteria.
type windowsRequest struct {
	Times  []time.Time `json:"times"`
	WinLen float64     `json:"winlen"`
	Policy string      `json:"policy"` // "concurrent" (default) or "continuous"
}

type windowsResponse struct {
	Starts  []time.Time      `json:"starts"`
	Monthly *monthlyResponse `json:"monthly"`
}

type monthlyResponse struct {
	Years  []int       `json:"years"`
	Months []int       `json:"months"`
	Cells  [][]float64 `json:"cells"`
}

func toMonthlyResponse(m *opsplan.MonthlyMatrix) *monthlyResponse {
	r := &monthlyResponse{Years: m.Years, Cells: m.Cells}
	for _, mo := range m.Months {
		r.Months = append(r.Months, int(mo))
	}
	return r
}

func parsePolicy(s string) (opsplan.ScanPolicy, error) {
	switch s {
	case "", "concurrent":
		return opsplan.ConcurrentWindows, nil
	case "continuous":
		return opsplan.ContinuousWindows, nil
	}
	return 0, fmt.Errorf("unknown scan policy %q, want concurrent or continuous", s)
}

func (s *Server) handleWindows(w http.ResponseWriter, req *http.Request) {
	var body windowsRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		s.format.WriteError(w, req, http.StatusBadRequest, fmt.Sprintf("decoding request: %v", err))
		return
	}
	policy, err := parsePolicy(body.Policy)
	if err != nil {
		s.format.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	if body.WinLen <= 0 {
		s.format.WriteError(w, req, http.StatusBadRequest, "winlen must be positive")
		return
	}

	starts, err := opsplan.WindowStarts(body.Times, body.WinLen, policy)
	if err != nil {
		s.format.WriteError(w, req, http.StatusUnprocessableEntity, err.Error())
		return
	}
	resp := windowsResponse{Starts: starts}
	if len(starts) > 0 {
		resp.Monthly = toMonthlyResponse(opsplan.WindowCountsByMonth(starts))
	}
	s.format.WriteResponse(w, req, resp)
}

// opLenRequest is the payload of POST /api/oplen. Either Day (monthly start
// grid) or Start (single date) selects the candidate starts.
type opLenRequest struct {
	Times    []time.Time `json:"times"`
	OpLen    float64     `json:"oplen"`
	Critical bool        `json:"critical"`
	Day      int         `json:"day,omitempty"`
	Start    *time.Time  `json:"start,omitempty"`
}

type opLenEntry struct {
	Start time.Time `json:"start"`
	Hours float64   `json:"hours"`
}

type opLenResponse struct {
	Lengths []opLenEntry     `json:"lengths"`
	Monthly *monthlyResponse `json:"monthly"`
}

func (s *Server) handleOpLen(w http.ResponseWriter, req *http.Request) {
	var body opLenRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		s.format.WriteError(w, req, http.StatusBadRequest, fmt.Sprintf("decoding request: %v", err))
		return
	}
	if body.OpLen <= 0 {
		s.format.WriteError(w, req, http.StatusBadRequest, "oplen must be positive")
		return
	}
	if body.Start != nil && body.Day != 0 {
		s.format.WriteError(w, req, http.StatusBadRequest, "day and start are mutually exclusive")
		return
	}

	var starts []time.Time
	if body.Start != nil {
		starts = []time.Time{*body.Start}
	} else {
		day := body.Day
		if day == 0 {
			day = 1
		}
		var err error
		starts, err = opsplan.MonthlyStartDates(body.Times, day)
		if err != nil {
			s.format.WriteError(w, req, http.StatusBadRequest, err.Error())
			return
		}
	}

	lengths, err := opsplan.OperationLengths(body.Times, body.OpLen, body.Critical, starts)
	if err != nil {
		s.format.WriteError(w, req, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := opLenResponse{}
	for _, l := range lengths {
		resp.Lengths = append(resp.Lengths, opLenEntry{Start: l.Start, Hours: l.Hours()})
	}
	if len(lengths) > 0 {
		resp.Monthly = toMonthlyResponse(opsplan.OperationHoursByMonth(lengths))
	}
	s.format.WriteResponse(w, req, resp)
}
