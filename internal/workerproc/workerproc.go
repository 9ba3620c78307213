// Package workerproc decodes conversion job payloads from SQS and hands them
// to the conversion service. It is shared by cmd/worker and cmd/lambda-worker.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"docproc-backend/internal/queue"
	"docproc-backend/internal/shared/telemetry"
)

// Processor renders one conversion.
type Processor interface {
	ProcessConversion(ctx context.Context, conversionID int64) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingConversionID indicates a message without a usable conversion id.
type ErrMissingConversionID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingConversionID) Error() string { return "missing conversion id" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	ConversionID int64
	RequestID    string
	Err          error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process conversion"
	}
	return "process conversion: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether err means the message can never succeed and
// should be removed from the queue.
func Unrecoverable(err error) bool {
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		missing ErrMissingConversionID
	)
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &missing)
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.ConversionID <= 0 {
		return msg, meta, ErrMissingConversionID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// HandleMessage parses, validates and processes a message payload.
func HandleMessage(ctx context.Context, p Processor, body string) error {
	if p == nil {
		return errors.New("conversion service not configured")
	}
	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}
	return Process(ctx, p, msg)
}

// Process runs an already decoded message.
func Process(ctx context.Context, p Processor, msg queue.Message) error {
	ctx = telemetry.WithRequestID(ctx, msg.RequestID)
	if err := p.ProcessConversion(ctx, msg.ConversionID); err != nil {
		return ErrProcess{ConversionID: msg.ConversionID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
