package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// TOOL ENVELOPE - Field-keyed calls: {"employee_id": ...} or {"data": {...}}
// =============================================================================

const codeUnknownTool = "UNKNOWN_TOOL"

type toolFunc func(ctx context.Context, fields map[string]any) (any, error)

// ToolInfo describes one callable tool.
type ToolInfo struct {
	Name string `json:"name"`
}

func (h *Handler) toolRegistry() map[string]toolFunc {
	svc := h.Service
	return map[string]toolFunc{
		"get_leave_balance": func(ctx context.Context, f map[string]any) (any, error) {
			var req leave.BalanceQuery
			if err := decodeFields(f, &req); err != nil {
				return nil, err
			}
			res, err := svc.QueryBalance(ctx, req)
			if err != nil {
				return nil, err
			}
			return toBalanceResponse(res), nil
		},
		"apply_leave": func(ctx context.Context, f map[string]any) (any, error) {
			var req leave.ApplyRequest
			if err := decodeFields(f, &req); err != nil {
				return nil, err
			}
			res, err := svc.Apply(ctx, req)
			if err != nil {
				return nil, err
			}
			return toApplyResponse(res), nil
		},
		"get_leave_history": func(ctx context.Context, f map[string]any) (any, error) {
			var req leave.HistoryQuery
			if err := decodeFields(f, &req); err != nil {
				return nil, err
			}
			res, err := svc.ListHistory(ctx, req)
			if err != nil {
				return nil, err
			}
			return toHistoryResponse(res), nil
		},
		"approve_leave": transitionTool(svc.Approve),
		"reject_leave":  transitionTool(svc.Reject),
		"cancel_leave":  transitionTool(svc.Cancel),
		"get_upcoming_leaves": func(ctx context.Context, f map[string]any) (any, error) {
			var req leave.UpcomingQuery
			if err := decodeFields(f, &req); err != nil {
				return nil, err
			}
			res, err := svc.ListUpcoming(ctx, req)
			if err != nil {
				return nil, err
			}
			return toUpcomingResponse(res), nil
		},
		"add_employee": func(ctx context.Context, f map[string]any) (any, error) {
			var req leave.RegisterRequest
			if err := decodeFields(f, &req); err != nil {
				return nil, err
			}
			emp, err := svc.RegisterEmployee(ctx, req)
			if err != nil {
				return nil, err
			}
			return toRegisterResponse(emp), nil
		},
		"update_leave_balance": func(ctx context.Context, f map[string]any) (any, error) {
			var req leave.AdjustRequest
			if err := decodeFields(f, &req); err != nil {
				return nil, err
			}
			res, err := svc.AdjustBalance(ctx, req)
			if err != nil {
				return nil, err
			}
			return toAdjustResponse(res), nil
		},
	}
}

func transitionTool(fn transitionFunc) toolFunc {
	return func(ctx context.Context, f map[string]any) (any, error) {
		var req leave.TransitionRequest
		if err := decodeFields(f, &req); err != nil {
			return nil, err
		}
		res, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}
		return toTransitionResponse(res), nil
	}
}

// ListTools returns the registered tool names in alphabetical order.
// GET /api/tools
func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.tools))
	for name := range h.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]ToolInfo, len(names))
	for i, n := range names {
		infos[i] = ToolInfo{Name: n}
	}
	writeJSON(w, http.StatusOK, infos)
}

// CallTool runs one tool against a field-keyed JSON object.
// POST /api/tools/{tool}
func (h *Handler) CallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "tool")
	tool, ok := h.tools[name]
	if !ok {
		writeError(w, http.StatusNotFound, codeUnknownTool, "Unknown tool: "+name, nil)
		return
	}

	raw := map[string]any{}
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid request body", err)
			return
		}
	}

	result, err := tool(r.Context(), flattenFields(raw))
	if err != nil {
		h.Logger.Debug("tool call failed", zap.String("tool", name), zap.Error(err))
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// flattenFields merges a nested "data" object under the top-level fields.
// A field present at the top level wins over the nested one.
func flattenFields(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	if nested, ok := raw["data"].(map[string]any); ok {
		for k, v := range nested {
			out[k] = v
		}
	}
	for k, v := range raw {
		if k == "data" {
			continue
		}
		out[k] = v
	}
	return out
}

// decodeFields coerces loosely typed fields ("14" for 14) into a typed request.
func decodeFields(fields map[string]any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           dst,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(fields); err != nil {
		return &leave.RequestError{Field: "request", Reason: err.Error()}
	}
	return nil
}
