package geocoding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"solarintake/internal/geodesy"
	"solarintake/internal/lookup/geocoding/mocks"
	"solarintake/internal/lookup/providers"
	"solarintake/pkg/platform/circuit"
	"solarintake/pkg/platform/sentinel"
)

var portoAlegre = geodesy.Coordinate{Latitude: -30.0346, Longitude: -51.2177}

func TestResolveCacheHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	cache := mocks.NewMockCache(ctrl)

	cache.EXPECT().FindCoordinate(gomock.Any(), "Porto Alegre, RS, Brazil").Return(&portoAlegre, nil)

	got, err := NewResolver(client, WithCache(cache)).Resolve(context.Background(), "Porto Alegre, RS, Brazil")
	require.NoError(t, err)
	assert.Equal(t, portoAlegre, got)
}

func TestResolveMissSaves(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	cache := mocks.NewMockCache(ctrl)

	gomock.InOrder(
		cache.EXPECT().FindCoordinate(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound),
		client.EXPECT().Search(gomock.Any(), "Porto Alegre, RS, Brazil").Return(portoAlegre, nil),
		cache.EXPECT().SaveCoordinate(gomock.Any(), "Porto Alegre, RS, Brazil", portoAlegre).Return(nil),
	)

	got, err := NewResolver(client, WithCache(cache)).Resolve(context.Background(), "Porto Alegre, RS, Brazil")
	require.NoError(t, err)
	assert.Equal(t, portoAlegre, got)
}

func TestResolveCacheErrorFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	cache := mocks.NewMockCache(ctrl)

	cache.EXPECT().FindCoordinate(gomock.Any(), gomock.Any()).Return(nil, errors.New("redis down"))
	client.EXPECT().Search(gomock.Any(), gomock.Any()).Return(portoAlegre, nil)
	cache.EXPECT().SaveCoordinate(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	got, err := NewResolver(client, WithCache(cache)).Resolve(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, portoAlegre, got)
}

func TestResolveNoMatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	noMatch := providers.NewProviderError(providers.ErrorNotFound, ProviderID, "no match", nil)
	client.EXPECT().Search(gomock.Any(), gomock.Any()).Return(geodesy.Coordinate{}, noMatch)

	_, err := NewResolver(client).Resolve(context.Background(), "nowhere, Brazil")
	assert.True(t, providers.IsNotFound(err))
}

func TestResolveCanceledDoesNotTripBreaker(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	breaker := circuit.New(ProviderID, circuit.WithFailureThreshold(1))

	client.EXPECT().Search(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) (geodesy.Coordinate, error) {
			<-ctx.Done()
			return geodesy.Coordinate{}, providers.ClassifyTransport(ProviderID, ctx.Err())
		})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := NewResolver(client, WithBreaker(breaker)).Resolve(ctx, "q")
	assert.Equal(t, providers.ErrorCanceled, providers.GetCategory(err))
	assert.False(t, breaker.IsOpen())
}

func TestResolveTimeoutTripsBreaker(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	breaker := circuit.New(ProviderID, circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))

	client.EXPECT().Search(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) (geodesy.Coordinate, error) {
			<-ctx.Done()
			return geodesy.Coordinate{}, providers.ClassifyTransport(ProviderID, ctx.Err())
		})

	r := NewResolver(client, WithBreaker(breaker), WithTimeout(10*time.Millisecond))
	_, err := r.Resolve(context.Background(), "q")
	assert.Equal(t, providers.ErrorTimeout, providers.GetCategory(err))
	assert.True(t, breaker.IsOpen())

	_, err = r.Resolve(context.Background(), "q")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}
