package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Proton-105/giftshop-bot/internal/domain"
)

func TestParseQuantity(t *testing.T) {
	testCases := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "3", want: 3},
		{input: " 12 ", want: 12},
		{input: "0", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
		{input: "1.5", wantErr: true},
		{input: "99999999999999999999", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseQuantity(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuantity)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRecipient(t *testing.T) {
	testCases := []struct {
		input   string
		want    domain.Recipient
		wantErr bool
	}{
		{input: "@x", want: domain.ChannelRecipient("@x")},
		{input: "  @mychannel ", want: domain.ChannelRecipient("@mychannel")},
		{input: "12345", want: domain.UserRecipient(12345)},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
		{input: "   ", wantErr: true},
		{input: "-5", wantErr: true},
		{input: "12a", wantErr: true},
		{input: "99999999999999999999", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseRecipient(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRecipient)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsCancel(t *testing.T) {
	assert.True(t, IsCancel("/cancel"))
	assert.True(t, IsCancel("  /CANCEL\n"))
	assert.True(t, IsCancel("/Cancel"))
	assert.False(t, IsCancel("cancel"))
	assert.False(t, IsCancel("/cancel now"))
	assert.False(t, IsCancel(""))
}
