package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/paystream/id"
	"github.com/xraph/paystream/stream"
	"github.com/xraph/paystream/types"
)

type streamModel struct {
	grove.BaseModel `grove:"table:paystream_streams"`

	ID                  string            `grove:"id,pk"`
	Sender              string            `grove:"sender"`
	Recipient           string            `grove:"recipient"`
	Deposit             int64             `grove:"deposit"`
	RatePerSecond       int64             `grove:"rate_per_second"`
	StartTime           int64             `grove:"start_time"`
	StopTime            int64             `grove:"stop_time"`
	Withdrawn           int64             `grove:"withdrawn"`
	Status              string            `grove:"status"`
	Version             int64             `grove:"version"`
	CanceledAt          int64             `grove:"canceled_at"`
	CompletedAt         int64             `grove:"completed_at"`
	SenderSettlement    int64             `grove:"sender_settlement"`
	RecipientSettlement int64             `grove:"recipient_settlement"`
	Metadata            map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt           time.Time         `grove:"created_at"`
	UpdatedAt           time.Time         `grove:"updated_at"`
}

func toStreamModel(s *stream.Stream) *streamModel {
	metadata := s.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	return &streamModel{
		ID:                  s.ID.String(),
		Sender:              s.Sender,
		Recipient:           s.Recipient,
		Deposit:             s.Deposit.Int64(),
		RatePerSecond:       s.RatePerSecond.Int64(),
		StartTime:           s.StartTime,
		StopTime:            s.StopTime,
		Withdrawn:           s.Withdrawn.Int64(),
		Status:              string(s.Status),
		Version:             s.Version,
		CanceledAt:          s.CanceledAt,
		CompletedAt:         s.CompletedAt,
		SenderSettlement:    s.SenderSettlement.Int64(),
		RecipientSettlement: s.RecipientSettlement.Int64(),
		Metadata:            metadata,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func fromStreamModel(m *streamModel) (*stream.Stream, error) {
	streamID, err := id.ParseStreamID(m.ID)
	if err != nil {
		return nil, err
	}

	s := &stream.Stream{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:                  streamID,
		Sender:              m.Sender,
		Recipient:           m.Recipient,
		Deposit:             types.Amount(m.Deposit),
		RatePerSecond:       types.Amount(m.RatePerSecond),
		StartTime:           m.StartTime,
		StopTime:            m.StopTime,
		Withdrawn:           types.Amount(m.Withdrawn),
		Status:              stream.Status(m.Status),
		Version:             m.Version,
		CanceledAt:          m.CanceledAt,
		CompletedAt:         m.CompletedAt,
		SenderSettlement:    types.Amount(m.SenderSettlement),
		RecipientSettlement: types.Amount(m.RecipientSettlement),
	}
	if len(m.Metadata) > 0 {
		s.Metadata = m.Metadata
	}
	return s, nil
}
