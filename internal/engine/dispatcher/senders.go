package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"

	apperrors "vetcare-reminders/internal/common/errors"
)

// Define interfaces for mocking the AWS clients in tests.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// EmailChannel and SMSChannel are the dispatcher's view of a delivery leg.
type EmailChannel interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMSChannel interface {
	Send(ctx context.Context, to, message string) error
}

// EmailSender delivers the email leg through SES.
type EmailSender struct {
	ses  SESService
	from string
}

func NewEmailSender(svc SESService, from string) *EmailSender {
	return &EmailSender{ses: svc, from: from}
}

func (s *EmailSender) Send(ctx context.Context, to, subject, body string) error {
	if !strings.Contains(to, "@") {
		return apperrors.NewChannelError("email", false,
			fmt.Errorf("no usable email address on file: %q", to))
	}

	input := &ses.SendEmailInput{
		Source:      aws.String(s.from),
		Destination: &sestypes.Destination{ToAddresses: []string{to}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
	}

	if _, err := s.ses.SendEmail(ctx, input); err != nil {
		return classifySendError("email", err)
	}
	return nil
}

// SMSSender delivers the SMS leg through SNS direct publish.
type SMSSender struct {
	sns      SNSService
	senderID string
}

func NewSMSSender(svc SNSService, senderID string) *SMSSender {
	return &SMSSender{sns: svc, senderID: senderID}
}

func (s *SMSSender) Send(ctx context.Context, to, message string) error {
	if strings.TrimSpace(to) == "" {
		return apperrors.NewChannelError("sms", false,
			errors.New("no phone number on file"))
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	}
	if s.senderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.senderID),
			},
		}
	}

	if _, err := s.sns.Publish(ctx, input); err != nil {
		return classifySendError("sms", err)
	}
	return nil
}

// classifySendError splits provider failures into retryable (throttling,
// 5xx, timeouts, network) and permanent (rejected address, bad request).
func classifySendError(channel string, err error) error {
	transient := true

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "TooManyRequestsException",
			"ServiceUnavailable", "InternalFailure", "RequestTimeout":
			transient = true
		default:
			transient = apiErr.ErrorFault() == smithy.FaultServer
		}
	}

	return apperrors.NewChannelError(channel, transient, err)
}

// DisabledEmail and DisabledSMS stand in for channels switched off in config.
// Every send fails permanently so misrouted reminders surface as failed, not
// stuck.
type DisabledEmail struct{}

func (DisabledEmail) Send(ctx context.Context, to, subject, body string) error {
	return apperrors.NewChannelError("email", false, errors.New("email channel is disabled"))
}

type DisabledSMS struct{}

func (DisabledSMS) Send(ctx context.Context, to, message string) error {
	return apperrors.NewChannelError("sms", false, errors.New("sms channel is disabled"))
}
