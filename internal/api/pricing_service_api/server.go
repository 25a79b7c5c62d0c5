package pricing_service_api

import (
	"context"
	"encoding/json"
	"errors"

	pricingsvc "github.com/Domenick1991/parcelbooking/internal/service/pricing"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server serves pricing months over gRPC.
type Server struct {
	calendar pricingsvc.CalendarUseCase
}

func NewServer(calendar pricingsvc.CalendarUseCase) *Server {
	return &Server{calendar: calendar}
}

// GetPricingMonth expects {"month": "YYYY-MM"}; an absent month means the current one.
func (s *Server) GetPricingMonth(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	value := ""
	if v, ok := req.GetFields()["month"]; ok {
		value = v.GetStringValue()
	}

	month, err := pricingsvc.ParseMonth(value, s.calendar.Window().Start)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	view, err := s.calendar.Month(ctx, month)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.FromContextError(err).Err()
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return toStruct(view)
}

func toStruct(view pricingsvc.MonthView) (*structpb.Struct, error) {
	data, err := json.Marshal(view)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

var _ PricingServiceServer = (*Server)(nil)
