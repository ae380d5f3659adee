package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/ventures/internal/core/domain"
	"github.com/rl1809/ventures/internal/core/service"
	"github.com/rl1809/ventures/internal/platform/auth"
	"github.com/rl1809/ventures/internal/platform/logger"
)

const VentureServiceName = "ventures.v1.VentureService"

type ListPitchesRequest struct {
	Status string `json:"status"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type PitchReply struct {
	Pitch *domain.Pitch `json:"pitch"`
}

type ShipmentReply struct {
	Shipment *domain.Shipment `json:"shipment"`
}

type PitchesReply struct {
	Pitches []domain.PitchListing `json:"pitches"`
}

type InterestReply struct {
	Interest *domain.Interest `json:"interest"`
}

type VentureServiceServer interface {
	CreatePitch(ctx context.Context, req *SubmitPitchRequest) (*PitchReply, error)
	CreateShipment(ctx context.Context, req *SubmitShipmentRequest) (*ShipmentReply, error)
	ListPitches(ctx context.Context, req *ListPitchesRequest) (*PitchesReply, error)
	ExpressInterest(ctx context.Context, req *ExpressInterestRequest) (*InterestReply, error)
}

type GRPCHandler struct {
	ventureService    *service.VentureService
	trustedVerifierID string
}

func NewGRPCHandler(ventureService *service.VentureService, trustedVerifierID string) *GRPCHandler {
	return &GRPCHandler{ventureService: ventureService, trustedVerifierID: trustedVerifierID}
}

func (h *GRPCHandler) CreatePitch(ctx context.Context, req *SubmitPitchRequest) (*PitchReply, error) {
	id, _ := auth.FromContext(ctx)
	pitch, err := h.ventureService.CreatePitch(ctx, service.PitchInput{
		FounderID:  id.AgentID,
		Title:      req.Title,
		Vision:     req.Vision,
		Traction:   req.Traction,
		FundingAsk: req.FundingAsk,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return &PitchReply{Pitch: pitch}, nil
}

func (h *GRPCHandler) CreateShipment(ctx context.Context, req *SubmitShipmentRequest) (*ShipmentReply, error) {
	id, _ := auth.FromContext(ctx)
	verifier := h.trustedVerifierID
	if verifier == "" {
		verifier = id.AgentID
	}
	shipment, err := h.ventureService.CreateShipment(ctx, service.ShipmentInput{
		FounderID:   id.AgentID,
		RepoURL:     req.RepoURL,
		CommitHash:  req.CommitHash,
		Description: req.Description,
		VerifiedBy:  verifier,
		ImpactScore: req.ImpactScore,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return &ShipmentReply{Shipment: shipment}, nil
}

func (h *GRPCHandler) ListPitches(ctx context.Context, req *ListPitchesRequest) (*PitchesReply, error) {
	pitches, err := h.ventureService.ListPitches(ctx, domain.PitchFilter{
		Status: domain.PitchStatus(req.Status),
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return &PitchesReply{Pitches: pitches}, nil
}

func (h *GRPCHandler) ExpressInterest(ctx context.Context, req *ExpressInterestRequest) (*InterestReply, error) {
	id, _ := auth.FromContext(ctx)
	interest, err := h.ventureService.ExpressInterest(ctx, service.InterestInput{
		PitchID:    req.PitchID,
		InvestorID: id.AgentID,
		Amount:     req.Amount,
		Message:    req.Message,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return &InterestReply{Interest: interest}, nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// RegisterVentureServiceServer attaches srv to s under VentureServiceName.
func RegisterVentureServiceServer(s grpc.ServiceRegistrar, srv VentureServiceServer) {
	s.RegisterService(&ventureServiceDesc, srv)
}

var ventureServiceDesc = grpc.ServiceDesc{
	ServiceName: VentureServiceName,
	HandlerType: (*VentureServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreatePitch", VentureServiceServer.CreatePitch),
		unaryMethod("CreateShipment", VentureServiceServer.CreateShipment),
		unaryMethod("ListPitches", VentureServiceServer.ListPitches),
		unaryMethod("ExpressInterest", VentureServiceServer.ExpressInterest),
	},
	Streams: []grpc.StreamDesc{},
}

func unaryMethod[Req, Resp any](name string, call func(VentureServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VentureServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + VentureServiceName + "/" + name,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(VentureServiceServer), ctx, req.(*Req))
			})
		},
	}
}

// UnaryAuthInterceptor authenticates every call from its bearer metadata.
// Every method except ListPitches also requires a claimed account.
func UnaryAuthInterceptor(log *logger.Logger, tokens *auth.TokenService) grpc.UnaryServerInterceptor {
	open := map[string]bool{
		"/" + VentureServiceName + "/ListPitches": true,
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("authorization"); len(vals) > 0 {
				header = vals[0]
			}
		}

		id, err := tokens.Verify(bearerToken(header))
		if err != nil {
			log.Debug("rejected call", "method", info.FullMethod, "error", err)
			return nil, status.Error(codes.Unauthenticated, "missing or invalid token")
		}
		if !open[info.FullMethod] && !id.Claimed {
			return nil, status.Error(codes.PermissionDenied, "agent account must be claimed")
		}
		return next(auth.WithIdentity(ctx, id), req)
	}
}
