package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

const (
	pkPrefix = "SESSION#"
	skReel   = "REEL#"

	// maxBatchWrite is the DynamoDB BatchWriteItem limit per call.
	maxBatchWrite = 25
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoStore implements JobStore on a single DynamoDB table.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

var _ JobStore = (*DynamoStore)(nil)

func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

func sessionPK(sessionID string) string {
	return pkPrefix + sessionID
}

func (s *DynamoStore) expiresAt() int64 {
	return s.now().Add(JobTTL).Unix()
}

// putItem marshals data and writes it with PK, SK and TTL attributes.
func (s *DynamoStore) putItem(ctx context.Context, pk, sk string, data any) error {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}
	item["expiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(s.expiresAt(), 10)}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// getItem reads one item into out. Returns false if it does not exist.
func (s *DynamoStore) getItem(ctx context.Context, pk, sk string, out any) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, sk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s SK=%s: %w", pk, sk, err)
	}
	return true, nil
}

func (s *DynamoStore) queryBySKPrefix(ctx context.Context, sessionID, skPrefix string) ([]map[string]types.AttributeValue, error) {
	pk := sessionPK(sessionID)
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :skPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":       &types.AttributeValueMemberS{Value: pk},
			":skPrefix": &types.AttributeValueMemberS{Value: skPrefix},
		},
	}

	var all []map[string]types.AttributeValue
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query PK=%s SK prefix=%s: %w", pk, skPrefix, err)
		}
		all = append(all, result.Items...)
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return all, nil
}

// batchDeleteKeys deletes items by PK/SK in chunks of maxBatchWrite.
func (s *DynamoStore) batchDeleteKeys(ctx context.Context, keys []map[string]types.AttributeValue) error {
	for i := 0; i < len(keys); i += maxBatchWrite {
		end := min(i+maxBatchWrite, len(keys))

		requests := make([]types.WriteRequest, 0, end-i)
		for _, key := range keys[i:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: key},
			})
		}

		_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.tableName: requests,
			},
		})
		if err != nil {
			return fmt.Errorf("BatchWriteItem delete (%d items): %w", len(requests), err)
		}
		// Unprocessed items are left to the TTL.
	}
	return nil
}

func (s *DynamoStore) PutReelJob(ctx context.Context, job *ReelJob) error {
	if job.CreatedAt == 0 {
		job.CreatedAt = s.now().Unix()
	}
	job.UpdatedAt = s.now().Unix()

	if err := s.putItem(ctx, sessionPK(job.SessionID), skReel+job.ID, job); err != nil {
		return fmt.Errorf("put reel job %s/%s: %w", job.SessionID, job.ID, err)
	}

	log.Debug().
		Str("sessionId", job.SessionID).
		Str("jobId", job.ID).
		Str("status", job.Status).
		Msg("Reel job persisted")
	return nil
}

func (s *DynamoStore) GetReelJob(ctx context.Context, sessionID, jobID string) (*ReelJob, error) {
	var job ReelJob
	found, err := s.getItem(ctx, sessionPK(sessionID), skReel+jobID, &job)
	if err != nil {
		return nil, fmt.Errorf("get reel job %s/%s: %w", sessionID, jobID, err)
	}
	if !found {
		log.Debug().Str("sessionId", sessionID).Str("jobId", jobID).Bool("found", false).Msg("GetReelJob: job not found")
		return nil, nil
	}

	job.ID = jobID
	job.SessionID = sessionID
	return &job, nil
}

func (s *DynamoStore) ListReelJobs(ctx context.Context, sessionID string) ([]*ReelJob, error) {
	items, err := s.queryBySKPrefix(ctx, sessionID, skReel)
	if err != nil {
		return nil, fmt.Errorf("list reel jobs for %s: %w", sessionID, err)
	}

	jobs := make([]*ReelJob, 0, len(items))
	for _, item := range items {
		var job ReelJob
		if err := attributevalue.UnmarshalMap(item, &job); err != nil {
			return nil, fmt.Errorf("unmarshal reel job: %w", err)
		}
		if sk, ok := item["SK"].(*types.AttributeValueMemberS); ok {
			job.ID = strings.TrimPrefix(sk.Value, skReel)
		}
		job.SessionID = sessionID
		jobs = append(jobs, &job)
	}
	return jobs, nil
}

func (s *DynamoStore) DeleteReelJobs(ctx context.Context, sessionID string) (int, error) {
	items, err := s.queryBySKPrefix(ctx, sessionID, skReel)
	if err != nil {
		return 0, fmt.Errorf("delete reel jobs for %s: %w", sessionID, err)
	}

	keys := make([]map[string]types.AttributeValue, 0, len(items))
	for _, item := range items {
		keys = append(keys, map[string]types.AttributeValue{
			"PK": item["PK"],
			"SK": item["SK"],
		})
	}
	if err := s.batchDeleteKeys(ctx, keys); err != nil {
		return 0, fmt.Errorf("delete reel jobs for %s: %w", sessionID, err)
	}

	log.Debug().Str("sessionId", sessionID).Int("deleted", len(keys)).Msg("Reel jobs deleted")
	return len(keys), nil
}
