package models_test

import (
	"encoding/json"
	"strings"
	"testing"

	"zipchat/internal/models"
	"zipchat/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClientFrame(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType models.FrameType
		wantErr  bool
	}{
		{
			name:     "valid join",
			raw:      `{"type":"join","data":{"zipcode":"90210"}}`,
			wantType: models.FrameJoin,
		},
		{
			name:     "valid message",
			raw:      `{"type":"message","data":{"content":"hello"}}`,
			wantType: models.FrameMessage,
		},
		{
			name:     "valid private message",
			raw:      `{"type":"private_message","data":{"recipientId":"u2","content":"hi"}}`,
			wantType: models.FramePrivateMessage,
		},
		{
			name:     "valid history request",
			raw:      `{"type":"get_private_messages","data":{"withUserId":"u2","limit":10}}`,
			wantType: models.FrameGetPrivateMessages,
		},
		{
			name:     "ping carries no data",
			raw:      `{"type":"ping"}`,
			wantType: models.FramePing,
		},
		{
			name:    "unparseable json",
			raw:     `{"type":`,
			wantErr: true,
		},
		{
			name:    "unknown type",
			raw:     `{"type":"teleport","data":{}}`,
			wantErr: true,
		},
		{
			name:    "join without zipcode",
			raw:     `{"type":"join","data":{}}`,
			wantErr: true,
		},
		{
			name:    "message without data",
			raw:     `{"type":"message"}`,
			wantErr: true,
		},
		{
			name:    "private message missing recipient",
			raw:     `{"type":"private_message","data":{"content":"hi"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cf, err := models.DecodeClientFrame([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.CodeMalformedFrame, apperrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, cf.Type)
		})
	}
}

func TestDecodeClientFramePayloads(t *testing.T) {
	cf, err := models.DecodeClientFrame([]byte(`{"type":"join","data":{"zipcode":"10001"}}`))
	require.NoError(t, err)
	require.NotNil(t, cf.Join)
	assert.Equal(t, "10001", cf.Join.Zipcode)

	cf, err = models.DecodeClientFrame([]byte(`{"type":"private_message","data":{"recipientId":"u7","content":"yo"}}`))
	require.NoError(t, err)
	require.NotNil(t, cf.Private)
	assert.Equal(t, "u7", cf.Private.RecipientID)
	assert.Equal(t, "yo", cf.Private.Content)
}

func TestEncodeFrameRoundTrip(t *testing.T) {
	raw, err := models.EncodeFrame(models.FrameError, models.ErrorPayload{
		Code:    apperrors.CodeNotJoined,
		Message: "join first",
	})
	require.NoError(t, err)

	var f models.Frame
	require.NoError(t, json.Unmarshal(raw, &f))
	assert.Equal(t, models.FrameError, f.Type)

	var p models.ErrorPayload
	require.NoError(t, json.Unmarshal(f.Data, &p))
	assert.Equal(t, apperrors.CodeNotJoined, p.Code)
}

func TestConversationIDIsCanonical(t *testing.T) {
	assert.Equal(t, models.ConversationID("u1", "u2"), models.ConversationID("u2", "u1"))
	assert.Equal(t, "u1_u2", models.ConversationID("u2", "u1"))
	assert.NotEqual(t, models.ConversationID("u1", "u2"), models.ConversationID("u1", "u3"))
}

func TestValidateContent(t *testing.T) {
	assert.True(t, models.ValidateContent("hello"))
	assert.False(t, models.ValidateContent(""))
	assert.False(t, models.ValidateContent("   "))

	long := make([]byte, models.MaxContentLength+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, models.ValidateContent(string(long)))
	assert.True(t, models.ValidateContent(string(long[:models.MaxContentLength])))

	// The limit counts characters, not bytes: multibyte text within the
	// character limit must pass.
	assert.True(t, models.ValidateContent(strings.Repeat("字", 300)))
	assert.True(t, models.ValidateContent(strings.Repeat("字", models.MaxContentLength)))
	assert.False(t, models.ValidateContent(strings.Repeat("字", models.MaxContentLength+1)))
}
