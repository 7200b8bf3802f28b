package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// NewClient establishes a gRPC connection to Qdrant at addr and returns the
// points and collections clients.
func NewClient(ctx context.Context, addr string) (qdrant.PointsClient, qdrant.CollectionsClient, *grpc.ClientConn, error) {
	if addr == "" {
		return nil, nil, nil, fmt.Errorf("qdrant address is not set")
	}
	logrus.WithField("address", addr).Info("connecting to Qdrant gRPC service")

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logrus.WithError(err).Error("failed to connect to Qdrant")
		return nil, nil, nil, fmt.Errorf("did not connect: %w", err)
	}

	pointsClient := qdrant.NewPointsClient(conn)
	collectionsClient := qdrant.NewCollectionsClient(conn)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := collectionsClient.List(ctx, &qdrant.ListCollectionsRequest{}); err != nil {
		logrus.WithError(err).Error("qdrant health check failed")
		conn.Close()
		return nil, nil, nil, fmt.Errorf("qdrant health check failed: %w", err)
	}

	logrus.Info("successfully connected to Qdrant")
	return pointsClient, collectionsClient, conn, nil
}

// EnsureCollectionExists creates the chunk vector collection with a cosine
// distance and an integer payload index on chunk_id when it is missing.
func EnsureCollectionExists(ctx context.Context, collectionsClient qdrant.CollectionsClient, pointsClient qdrant.PointsClient, collectionName string, vectorSize uint64) error {
	log := logrus.WithField("collection_name", collectionName)

	_, err := collectionsClient.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: collectionName,
	})
	if err == nil {
		log.Info("collection already exists")
		return nil
	}
	if st, ok := status.FromError(err); !ok || st.Code() != codes.NotFound {
		return fmt.Errorf("could not get collection info: %w", err)
	}

	log.WithField("vector_size", vectorSize).Info("collection not found, creating it now")
	_, err = collectionsClient.Create(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     vectorSize,
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("could not create collection: %w", err)
	}

	wait := true
	_, err = pointsClient.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collectionName,
		FieldName:      payloadChunkID,
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("could not create '%s' payload index: %w", payloadChunkID, err)
	}

	log.Info("collection and payload index created")
	return nil
}
