package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"beastfood/pkg/logger"
	"beastfood/pkg/models"
)

type fakeSearcher struct {
	term    string
	filters models.SearchFilters
}

func (f *fakeSearcher) Search(_ context.Context, term string, filters models.SearchFilters) *models.SearchResult {
	f.term, f.filters = term, filters
	return &models.SearchResult{
		SearchTerm:  term,
		Suggestions: []models.Candidate{{Name: "Pizzaria Bella", Address: "Rua A, 10"}},
		Sources:     []string{models.SourceLocalDatabase},
		Total:       1,
	}
}

type fakeRestaurants struct {
	detail *models.RestaurantDetail
	err    error
}

func (f fakeRestaurants) GetDetail(_ context.Context, id int64) (*models.RestaurantDetail, error) {
	if f.detail != nil && f.detail.ID != id {
		return nil, nil
	}
	return f.detail, f.err
}

func dial(t *testing.T, srv *Server) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(grpc.UnaryInterceptor(UnaryLogger(logger.NewNop())))
	Register(gs, srv)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestSearchOverGRPC(t *testing.T) {
	searcher := &fakeSearcher{}
	conn := dial(t, NewServer(searcher, fakeRestaurants{}))

	out := new(structpb.Struct)
	err := conn.Invoke(context.Background(), SearchMethod,
		mustStruct(t, map[string]any{"q": " pizza ", "type": "Restaurant", "min_price": 2, "min_rating": "4.5"}), out)
	require.NoError(t, err)

	assert.Equal(t, "pizza", searcher.term)
	assert.Equal(t, models.SearchFilters{Type: "restaurant", MinPrice: 2, MinRating: 4.5}, searcher.filters)
	assert.Equal(t, "pizza", out.GetFields()["search_term"].GetStringValue())
	assert.Equal(t, float64(1), out.GetFields()["total"].GetNumberValue())
	suggestions := out.GetFields()["suggestions"].GetListValue().GetValues()
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Pizzaria Bella", suggestions[0].GetStructValue().GetFields()["name"].GetStringValue())
}

func TestSearchRejectsInvalidInput(t *testing.T) {
	conn := dial(t, NewServer(&fakeSearcher{}, fakeRestaurants{}))

	cases := []map[string]any{
		{},
		{"q": "   "},
		{"q": "pizza", "min_price": 7},
		{"q": "pizza", "min_price": 4, "max_price": 2},
	}
	for _, req := range cases {
		err := conn.Invoke(context.Background(), SearchMethod, mustStruct(t, req), new(structpb.Struct))
		assert.Equal(t, codes.InvalidArgument, status.Code(err), "request %v", req)
	}
}

func TestGetRestaurant(t *testing.T) {
	detail := &models.RestaurantDetail{
		Restaurant: models.Restaurant{ID: 7, Name: "Cantina", Address: "Rua B, 2", Category: "restaurant", PriceLevel: 2},
		Services:   []string{"delivery"},
	}
	conn := dial(t, NewServer(&fakeSearcher{}, fakeRestaurants{detail: detail}))

	out := new(structpb.Struct)
	require.NoError(t, conn.Invoke(context.Background(), GetRestaurantMethod, mustStruct(t, map[string]any{"id": 7}), out))
	assert.Equal(t, "Cantina", out.GetFields()["name"].GetStringValue())
	assert.Equal(t, "delivery", out.GetFields()["services"].GetListValue().GetValues()[0].GetStringValue())

	err := conn.Invoke(context.Background(), GetRestaurantMethod, mustStruct(t, map[string]any{"id": "8"}), new(structpb.Struct))
	assert.Equal(t, codes.NotFound, status.Code(err))

	err = conn.Invoke(context.Background(), GetRestaurantMethod, mustStruct(t, map[string]any{"id": -1}), new(structpb.Struct))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetRestaurantStoreFailure(t *testing.T) {
	srv := NewServer(&fakeSearcher{}, fakeRestaurants{err: errors.New("db down")})
	_, err := srv.GetRestaurant(context.Background(), mustStruct(t, map[string]any{"id": 1}))
	assert.Equal(t, codes.Internal, status.Code(err))
}
