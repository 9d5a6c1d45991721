package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vetcare-reminders/internal/common/errors"
)

type mockSES struct {
	input *ses.SendEmailInput
	err   error
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{}, nil
}

type mockSNS struct {
	input *sns.PublishInput
	err   error
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return &sns.PublishOutput{}, nil
}

func TestEmailSenderBuildsSESInput(t *testing.T) {
	svc := &mockSES{}
	s := NewEmailSender(svc, "reminders@clinic.example")

	err := s.Send(context.Background(), "sam@example.com", "Vax due", "Rex is due")
	require.NoError(t, err)
	require.NotNil(t, svc.input)
	assert.Equal(t, "reminders@clinic.example", *svc.input.Source)
	assert.Equal(t, []string{"sam@example.com"}, svc.input.Destination.ToAddresses)
	assert.Equal(t, "Vax due", *svc.input.Message.Subject.Data)
	assert.Equal(t, "Rex is due", *svc.input.Message.Body.Text.Data)
}

func TestEmailSenderRejectsMissingAddress(t *testing.T) {
	s := NewEmailSender(&mockSES{}, "reminders@clinic.example")

	err := s.Send(context.Background(), "", "subj", "body")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeChannelError))
	assert.False(t, apperrors.IsRetryable(err))
}

func TestSMSSenderSetsSenderID(t *testing.T) {
	svc := &mockSNS{}
	s := NewSMSSender(svc, "VETCLINIC")

	require.NoError(t, s.Send(context.Background(), "+15550100", "Rex is due"))
	require.NotNil(t, svc.input)
	assert.Equal(t, "+15550100", *svc.input.PhoneNumber)
	attr, ok := svc.input.MessageAttributes["AWS.SNS.SMS.SenderID"]
	require.True(t, ok)
	assert.Equal(t, "VETCLINIC", *attr.StringValue)
}

func TestSMSSenderRejectsMissingPhone(t *testing.T) {
	s := NewSMSSender(&mockSNS{}, "")

	err := s.Send(context.Background(), "  ", "msg")
	require.Error(t, err)
	assert.False(t, apperrors.IsRetryable(err))
}

func TestClassifySendError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"network error", errors.New("dial tcp: connection refused"), true},
		{"timeout", context.DeadlineExceeded, true},
		{"throttling", &smithy.GenericAPIError{Code: "ThrottlingException", Fault: smithy.FaultClient}, true},
		{"server fault", &smithy.GenericAPIError{Code: "InternalServerError", Fault: smithy.FaultServer}, true},
		{"rejected address", &smithy.GenericAPIError{Code: "MessageRejected", Fault: smithy.FaultClient}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifySendError("email", tt.err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeChannelError))
			assert.Equal(t, tt.retryable, apperrors.IsRetryable(err))
		})
	}
}
