package grpcserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"beastfood/internal/search"
	"beastfood/pkg/models"
	"beastfood/pkg/utils"
)

const maxTermLen = 100

type Searcher interface {
	Search(ctx context.Context, term string, f models.SearchFilters) *models.SearchResult
}

type RestaurantFinder interface {
	GetDetail(ctx context.Context, id int64) (*models.RestaurantDetail, error)
}

// Server exposes search and restaurant lookups over gRPC. Messages are
// google.protobuf.Struct values carrying the same JSON shapes as the HTTP API.
type Server struct {
	Search      Searcher
	Restaurants RestaurantFinder
}

func NewServer(s Searcher, r RestaurantFinder) *Server {
	return &Server{Search: s, Restaurants: r}
}

func (s *Server) SearchRestaurants(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	term := strings.TrimSpace(stringField(req, "q"))
	if term == "" {
		return nil, status.Error(codes.InvalidArgument, "q is required")
	}
	if len(term) > maxTermLen {
		return nil, status.Error(codes.InvalidArgument, "q must be at most 100 characters")
	}

	f, msg := search.ParseFilters(
		stringField(req, "type"),
		stringField(req, "min_price"),
		stringField(req, "max_price"),
		stringField(req, "min_rating"),
	)
	if msg != "" {
		return nil, status.Error(codes.InvalidArgument, msg)
	}

	out, err := toStruct(s.Search.Search(ctx, term, f))
	if err != nil {
		return nil, status.Error(codes.Internal, "encode failed")
	}
	return out, nil
}

func (s *Server) GetRestaurant(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	id, err := utils.ParseID(stringField(req, "id"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "id must be a positive integer")
	}

	detail, err := s.Restaurants.GetDetail(ctx, id)
	if err != nil {
		return nil, status.Error(codes.Internal, "get failed")
	}
	if detail == nil {
		return nil, status.Error(codes.NotFound, "not found")
	}

	out, err := toStruct(detail)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode failed")
	}
	return out, nil
}

// stringField renders scalar fields as strings so numbers and strings are
// accepted interchangeably.
func stringField(s *structpb.Struct, key string) string {
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	default:
		return ""
	}
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return structpb.NewStruct(m)
}

// Register attaches both services to the registrar.
func Register(r grpc.ServiceRegistrar, s *Server) {
	r.RegisterService(&searchServiceDesc, s)
	r.RegisterService(&restaurantServiceDesc, s)
}
