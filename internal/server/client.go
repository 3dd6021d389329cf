package server

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"heartwise/internal/controller"
	"heartwise/internal/heartrate"
)

// Client calls a remote HeartWiseService.
type Client struct {
	getState     *connect.Client[GetStateRequest, StateResponse]
	getReading   *connect.Client[GetReadingRequest, ReadingResponse]
	predictRisk  *connect.Client[PredictRiskRequest, StateResponse]
	estimateTime *connect.Client[EstimateTimeRequest, StateResponse]
	dismissAlert *connect.Client[DismissAlertRequest, StateResponse]
	setProfile   *connect.Client[SetProfileRequest, StateResponse]
}

func NewClient(httpClient connect.HTTPClient, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := strings.TrimRight(baseURL, "/")
	opts := []connect.ClientOption{connect.WithCodec(jsonCodec{})}
	return &Client{
		getState:     connect.NewClient[GetStateRequest, StateResponse](httpClient, base+ProcedureGetState, opts...),
		getReading:   connect.NewClient[GetReadingRequest, ReadingResponse](httpClient, base+ProcedureGetReading, opts...),
		predictRisk:  connect.NewClient[PredictRiskRequest, StateResponse](httpClient, base+ProcedurePredictRisk, opts...),
		estimateTime: connect.NewClient[EstimateTimeRequest, StateResponse](httpClient, base+ProcedureEstimateTime, opts...),
		dismissAlert: connect.NewClient[DismissAlertRequest, StateResponse](httpClient, base+ProcedureDismissAlert, opts...),
		setProfile:   connect.NewClient[SetProfileRequest, StateResponse](httpClient, base+ProcedureSetProfile, opts...),
	}
}

func (c *Client) GetState(ctx context.Context) (controller.View, error) {
	res, err := c.getState.CallUnary(ctx, connect.NewRequest(&GetStateRequest{}))
	if err != nil {
		return controller.View{}, err
	}
	return res.Msg.View, nil
}

func (c *Client) GetReading(ctx context.Context) (heartrate.Reading, error) {
	res, err := c.getReading.CallUnary(ctx, connect.NewRequest(&GetReadingRequest{}))
	if err != nil {
		return heartrate.Reading{}, err
	}
	return res.Msg.Reading, nil
}

func (c *Client) PredictRisk(ctx context.Context, req *PredictRiskRequest) (controller.View, error) {
	res, err := c.predictRisk.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return controller.View{}, err
	}
	return res.Msg.View, nil
}

func (c *Client) EstimateTime(ctx context.Context, req *EstimateTimeRequest) (controller.View, error) {
	res, err := c.estimateTime.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return controller.View{}, err
	}
	return res.Msg.View, nil
}

func (c *Client) DismissAlert(ctx context.Context) (controller.View, error) {
	res, err := c.dismissAlert.CallUnary(ctx, connect.NewRequest(&DismissAlertRequest{}))
	if err != nil {
		return controller.View{}, err
	}
	return res.Msg.View, nil
}

func (c *Client) SetProfile(ctx context.Context, userData string) (controller.View, error) {
	res, err := c.setProfile.CallUnary(ctx, connect.NewRequest(&SetProfileRequest{UserData: userData}))
	if err != nil {
		return controller.View{}, err
	}
	return res.Msg.View, nil
}
