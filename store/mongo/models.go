package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/paystream/id"
	"github.com/xraph/paystream/stream"
	"github.com/xraph/paystream/types"
)

type streamModel struct {
	grove.BaseModel `grove:"table:paystream_streams"`

	ID                  string            `grove:"id,pk"                bson:"_id"`
	Seq                 int64             `grove:"seq"                  bson:"seq"`
	Sender              string            `grove:"sender"               bson:"sender"`
	Recipient           string            `grove:"recipient"            bson:"recipient"`
	Deposit             int64             `grove:"deposit"              bson:"deposit"`
	RatePerSecond       int64             `grove:"rate_per_second"      bson:"rate_per_second"`
	StartTime           int64             `grove:"start_time"           bson:"start_time"`
	StopTime            int64             `grove:"stop_time"            bson:"stop_time"`
	Withdrawn           int64             `grove:"withdrawn"            bson:"withdrawn"`
	Status              string            `grove:"status"               bson:"status"`
	Version             int64             `grove:"version"              bson:"version"`
	CanceledAt          int64             `grove:"canceled_at"          bson:"canceled_at"`
	CompletedAt         int64             `grove:"completed_at"         bson:"completed_at"`
	SenderSettlement    int64             `grove:"sender_settlement"    bson:"sender_settlement"`
	RecipientSettlement int64             `grove:"recipient_settlement" bson:"recipient_settlement"`
	Metadata            map[string]string `grove:"metadata"             bson:"metadata,omitempty"`
	CreatedAt           time.Time         `grove:"created_at"           bson:"created_at"`
	UpdatedAt           time.Time         `grove:"updated_at"           bson:"updated_at"`
}

func toStreamModel(s *stream.Stream, seq int64) *streamModel {
	return &streamModel{
		ID:                  s.ID.String(),
		Seq:                 seq,
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
		Metadata:            s.Metadata,
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
