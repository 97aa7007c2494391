package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Loan rules documents travel as google.protobuf.Struct so the service keeps
// the JSON shape clients already exchange ({"loanRulesAsTextFile": ...}).

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "loanrules.v1.LoanRules"

const (
	GetLoanRulesMethod     = "/" + ServiceName + "/GetLoanRules"
	PutLoanRulesMethod     = "/" + ServiceName + "/PutLoanRules"
	CompileLoanRulesMethod = "/" + ServiceName + "/CompileLoanRules"
)

// LoanRulesServer is the server API for the LoanRules service.
type LoanRulesServer interface {
	GetLoanRules(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	PutLoanRules(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	CompileLoanRules(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterLoanRulesServer registers srv on s.
func RegisterLoanRulesServer(s grpc.ServiceRegistrar, srv LoanRulesServer) {
	s.RegisterService(&loanRulesServiceDesc, srv)
}

var loanRulesServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LoanRulesServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetLoanRules", Handler: getLoanRulesHandler},
		{MethodName: "PutLoanRules", Handler: putLoanRulesHandler},
		{MethodName: "CompileLoanRules", Handler: compileLoanRulesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "loanrules/v1/loanrules.proto",
}

func getLoanRulesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LoanRulesServer).GetLoanRules(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetLoanRulesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LoanRulesServer).GetLoanRules(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func putLoanRulesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LoanRulesServer).PutLoanRules(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PutLoanRulesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LoanRulesServer).PutLoanRules(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func compileLoanRulesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LoanRulesServer).CompileLoanRules(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CompileLoanRulesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LoanRulesServer).CompileLoanRules(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// LoanRulesClient is the client API for the LoanRules service.
type LoanRulesClient struct {
	cc grpc.ClientConnInterface
}

// NewLoanRulesClient creates a client over cc.
func NewLoanRulesClient(cc grpc.ClientConnInterface) *LoanRulesClient {
	return &LoanRulesClient{cc: cc}
}

// GetLoanRules fetches the tenant's rule text and its Drools rendering.
func (c *LoanRulesClient) GetLoanRules(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetLoanRulesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// PutLoanRules replaces the tenant's rule text.
func (c *LoanRulesClient) PutLoanRules(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, PutLoanRulesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CompileLoanRules compiles rule text without storing it.
func (c *LoanRulesClient) CompileLoanRules(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CompileLoanRulesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
