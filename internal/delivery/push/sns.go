package push

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"notification-dispatcher/internal/common/aws"
	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"
	"github.com/redis/go-redis/v9"
)

// ErrTokenUnregistered means the device token is no longer valid for push.
var ErrTokenUnregistered = stderrors.New("push token is invalid or unregistered")

const endpointKeyPrefix = "push:endpoint:"

// Sender delivers one mobile push notification to a device token.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

type SNSConfig struct {
	PlatformApplicationARN string
	EndpointCacheTTL       time.Duration
}

// SNSSender publishes FCM notifications through SNS mobile push. Device
// tokens are registered as platform endpoints; the endpoint ARN for a
// token is cached in Redis.
type SNSSender struct {
	client *aws.SNSClient
	cache  redis.Cmdable
	config SNSConfig
	logger logger.Logger
}

func NewSNSSender(client *aws.SNSClient, cache redis.Cmdable, cfg SNSConfig, log logger.Logger) *SNSSender {
	if cfg.EndpointCacheTTL <= 0 {
		cfg.EndpointCacheTTL = 24 * time.Hour
	}
	return &SNSSender{
		client: client,
		cache:  cache,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "sns_sender"}),
	}
}

func (s *SNSSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	endpointARN, err := s.resolveEndpoint(ctx, token)
	if err != nil {
		return s.classify(ctx, token, err)
	}

	message, err := buildMessage(title, body, data)
	if err != nil {
		return fmt.Errorf("build push payload: %w", err)
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        awssdk.String(endpointARN),
		Message:          awssdk.String(message),
		MessageStructure: awssdk.String("json"),
	})
	if err != nil {
		return s.classify(ctx, token, err)
	}

	s.logger.Info("push notification sent", map[string]interface{}{
		"messageId": awssdk.ToString(out.MessageId),
	})
	return nil
}

func (s *SNSSender) resolveEndpoint(ctx context.Context, token string) (string, error) {
	key := endpointKey(token)
	if s.cache != nil {
		arn, err := s.cache.Get(ctx, key).Result()
		if err == nil && arn != "" {
			return arn, nil
		}
		if err != nil && err != redis.Nil {
			s.logger.Warn("endpoint cache read failed", map[string]interface{}{"error": err.Error()})
		}
	}

	arn, err := s.client.CreatePlatformEndpoint(ctx, s.config.PlatformApplicationARN, token)
	if err != nil {
		return "", err
	}
	if arn == "" {
		return "", fmt.Errorf("sns returned no endpoint arn")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, arn, s.config.EndpointCacheTTL).Err(); err != nil {
			s.logger.Warn("endpoint cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return arn, nil
}

// classify turns SNS failures for dead endpoints into ErrTokenUnregistered
// and forgets the cached endpoint.
func (s *SNSSender) classify(ctx context.Context, token string, err error) error {
	if !isUnregistered(err) {
		return errors.NewExternalServiceError("sns", err)
	}

	if s.cache != nil {
		_ = s.cache.Del(ctx, endpointKey(token)).Err()
	}
	s.logger.Warn("push token is invalid or unregistered", map[string]interface{}{
		"error": err.Error(),
	})
	return errors.NewPushTokenUnregisteredError(fmt.Errorf("%w: %v", ErrTokenUnregistered, err))
}

func isUnregistered(err error) bool {
	var disabled *types.EndpointDisabledException
	if stderrors.As(err, &disabled) {
		return true
	}
	var notFound *types.NotFoundException
	if stderrors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "EndpointDisabled", "NotFound":
			return true
		}
	}
	return false
}

func endpointKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return endpointKeyPrefix + hex.EncodeToString(sum[:])
}

type gcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

type gcmPayload struct {
	Notification gcmNotification   `json:"notification"`
	Data         map[string]string `json:"data"`
	Android      struct {
		Priority string `json:"priority"`
	} `json:"android"`
}

type apnsPayload struct {
	Aps struct {
		Alert struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		} `json:"alert"`
		Sound string `json:"sound"`
		Badge int    `json:"badge"`
	} `json:"aps"`
	Data map[string]string `json:"data,omitempty"`
}

// buildMessage renders the per-platform JSON message SNS expects when
// MessageStructure is "json".
func buildMessage(title, body string, data map[string]string) (string, error) {
	if data == nil {
		data = map[string]string{}
	}

	gcm := gcmPayload{
		Notification: gcmNotification{Title: title, Body: body, Sound: "default"},
		Data:         data,
	}
	gcm.Android.Priority = "high"

	var apns apnsPayload
	apns.Aps.Alert.Title = title
	apns.Aps.Alert.Body = body
	apns.Aps.Sound = "default"
	apns.Aps.Badge = 1
	apns.Data = data

	gcmJSON, err := json.Marshal(gcm)
	if err != nil {
		return "", err
	}
	apnsJSON, err := json.Marshal(apns)
	if err != nil {
		return "", err
	}

	msg, err := json.Marshal(map[string]string{
		"default": body,
		"GCM":     string(gcmJSON),
		"APNS":    string(apnsJSON),
	})
	if err != nil {
		return "", err
	}
	return string(msg), nil
}
