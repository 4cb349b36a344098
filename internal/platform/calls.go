package platform

import (
	"context"
	"net/http"
	"time"

	"github.com/relaydial/relaydial/internal/model"
	"github.com/relaydial/relaydial/internal/prompts"
)

// ListCalls fetches the call history. Transcripts are omitted from list
// responses; GetCall loads the full record on demand.
func (c *Client) ListCalls(ctx context.Context) ([]model.Call, error) {
	var wire []wireCall
	if err := c.do(ctx, http.MethodPost, "/v2/list-calls", struct{}{}, &wire); err != nil {
		return nil, err
	}
	calls := make([]model.Call, 0, len(wire))
	for _, w := range wire {
		call := callFromWire(w)
		call.Transcript = nil // loaded on demand via GetCall
		calls = append(calls, call)
	}
	return calls, nil
}

// GetCall fetches one call with its full transcript and extracted data.
func (c *Client) GetCall(ctx context.Context, callID string) (model.Call, error) {
	var wire wireCall
	if err := c.do(ctx, http.MethodGet, "/v2/get-call/"+callID, nil, &wire); err != nil {
		return model.Call{}, err
	}
	return callFromWire(wire), nil
}

// CreatePhoneCall dials an outbound phone call with the driver context passed
// as dynamic variables for the agent's prompt.
func (c *Client) CreatePhoneCall(ctx context.Context, req model.CallRequest) (model.Call, error) {
	vars := prompts.DynamicVariables(req.DriverName, req.PhoneNumber, req.LoadNumber, req.Scenario)
	vars["pickup_location"] = req.PickupLocation
	vars["delivery_location"] = req.DeliveryLocation
	in := wireCreatePhoneCall{
		AgentID:          req.AgentID,
		FromNumber:       c.fromNumber,
		ToNumber:         req.PhoneNumber,
		DynamicVariables: vars,
	}
	var wire wireCall
	if err := c.do(ctx, http.MethodPost, "/v2/create-phone-call", in, &wire); err != nil {
		return model.Call{}, err
	}

	return model.Call{
		ID:                  wire.CallID,
		DriverName:          req.DriverName,
		PhoneNumber:         req.PhoneNumber,
		LoadNumber:          req.LoadNumber,
		AgentID:             req.AgentID,
		Scenario:            req.Scenario,
		Status:              model.CallPending,
		Timestamp:           time.Now(),
		PickupLocation:      req.PickupLocation,
		DeliveryLocation:    req.DeliveryLocation,
		EstimatedPickupTime: req.EstimatedPickupTime,
		Notes:               req.Notes,
	}, nil
}

// CreateWebCall registers a browser-based session and returns the access
// token the real-time transport needs to join it.
func (c *Client) CreateWebCall(ctx context.Context, agentID string, vars map[string]string) (model.WebCall, error) {
	in := wireCreateWebCall{AgentID: agentID, DynamicVariables: vars}
	var wire wireCall
	if err := c.do(ctx, http.MethodPost, "/v2/create-web-call", in, &wire); err != nil {
		return model.WebCall{}, err
	}
	return model.WebCall{CallID: wire.CallID, AccessToken: wire.AccessToken, AgentID: wire.AgentID}, nil
}
