package email

import (
	"context"

	"notification-dispatcher/internal/common/aws"
	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESSender sends HTML email through Amazon SES.
type SESSender struct {
	client *aws.SESClient
	source string
	logger logger.Logger
}

func NewSESSender(client *aws.SESClient, from, fromName string, log logger.Logger) *SESSender {
	return &SESSender{
		client: client,
		source: formatFrom(fromName, from),
		logger: log.WithFields(map[string]interface{}{"component": "ses_sender"}),
	}
}

func (s *SESSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      awssdk.String(s.source),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(subject), Charset: awssdk.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: awssdk.String(htmlBody), Charset: awssdk.String("UTF-8")},
			},
		},
	})
	if err != nil {
		s.logger.Error("ses send failed", map[string]interface{}{
			"to":    to,
			"error": err.Error(),
		})
		return errors.NewExternalServiceError("ses", err)
	}

	s.logger.Info("email sent", map[string]interface{}{
		"to":        to,
		"messageId": awssdk.ToString(out.MessageId),
	})
	return nil
}
