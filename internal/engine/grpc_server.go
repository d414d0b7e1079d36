package engine

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xela07ax/directive-gate/internal/domain"
)

/*
gate.v1.GateService описан вручную поверх google.protobuf.Struct:

	rpc CheckOperation(google.protobuf.Struct) returns (google.protobuf.Struct);

Запрос: {"actor_id": "...", "operation": "..."}.
Ответ:  {"allowed": bool, "reason": "...", "directive_id": number, "actor_id": "..."}.
BLOCK это обычный ответ, а не ошибка; NOT_INITIALIZED -> codes.Unavailable.
*/

const (
	GateServiceName     = "gate.v1.GateService"
	checkOperationPath  = "/" + GateServiceName + "/CheckOperation"
	checkOperationShort = "CheckOperation"
)

// GateServiceServer серверная часть gate.v1.GateService.
type GateServiceServer interface {
	CheckOperation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var GateServiceDesc = grpc.ServiceDesc{
	ServiceName: GateServiceName,
	HandlerType: (*GateServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: checkOperationShort,
			Handler:    checkOperationHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gate/v1/gate.proto",
}

func checkOperationHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GateServiceServer).CheckOperation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: checkOperationPath}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(GateServiceServer).CheckOperation(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func RegisterGateServiceServer(s grpc.ServiceRegistrar, srv GateServiceServer) {
	s.RegisterService(&GateServiceDesc, srv)
}

type GRPCGateServer struct {
	gate *Gate
}

func NewGRPCGateServer(gate *Gate) *GRPCGateServer {
	return &GRPCGateServer{gate: gate}
}

func (s *GRPCGateServer) CheckOperation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	actorID := fields["actor_id"].GetStringValue()
	operation := fields["operation"].GetStringValue()

	decision, err := s.gate.CheckOperation(ctx, actorID, operation)
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotInitialized):
		return nil, status.Error(codes.Unavailable, err.Error())
	case err != nil:
		return nil, status.Error(codes.Internal, "internal error")
	}
	return DecisionToStruct(decision)
}

func DecisionToStruct(d domain.ComplianceDecision) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"allowed":      d.Allowed,
		"reason":       string(d.Reason),
		"directive_id": float64(d.DirectiveID),
		"actor_id":     d.ActorID,
	})
}

func DecisionFromStruct(s *structpb.Struct) domain.ComplianceDecision {
	f := s.GetFields()
	return domain.ComplianceDecision{
		Allowed:     f["allowed"].GetBoolValue(),
		Reason:      domain.Reason(f["reason"].GetStringValue()),
		DirectiveID: int64(f["directive_id"].GetNumberValue()),
		ActorID:     f["actor_id"].GetStringValue(),
	}
}

// GateClient клиент gate.v1.GateService (gatectl, интеграции).
type GateClient struct {
	cc grpc.ClientConnInterface
}

func NewGateClient(cc grpc.ClientConnInterface) *GateClient {
	return &GateClient{cc: cc}
}

func (c *GateClient) CheckOperation(ctx context.Context, actorID, operation string, opts ...grpc.CallOption) (domain.ComplianceDecision, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		"actor_id":  actorID,
		"operation": operation,
	})
	if err != nil {
		return domain.ComplianceDecision{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, checkOperationPath, req, out, opts...); err != nil {
		return domain.ComplianceDecision{}, err
	}
	return DecisionFromStruct(out), nil
}
