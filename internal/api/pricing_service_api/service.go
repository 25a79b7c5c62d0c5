package pricing_service_api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName           = "parcel.pricing.v1.PricingService"
	GetPricingMonthMethod = "/" + ServiceName + "/GetPricingMonth"
)

// PricingServiceServer is the server side of parcel.pricing.v1.PricingService.
// Requests and replies travel as google.protobuf.Struct.
type PricingServiceServer interface {
	GetPricingMonth(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PricingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetPricingMonth",
			Handler:    getPricingMonthHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "parcel/pricing/v1/pricing.proto",
}

func RegisterPricingServiceServer(s grpc.ServiceRegistrar, srv PricingServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func getPricingMonthHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PricingServiceServer).GetPricingMonth(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetPricingMonthMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PricingServiceServer).GetPricingMonth(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type PricingServiceClient interface {
	GetPricingMonth(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type pricingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewPricingServiceClient(cc grpc.ClientConnInterface) PricingServiceClient {
	return &pricingServiceClient{cc: cc}
}

func (c *pricingServiceClient) GetPricingMonth(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetPricingMonthMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
