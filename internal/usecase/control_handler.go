package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"MarketSim/internal/domain/models"
	"MarketSim/internal/domain/repository"
	pkgkafka "MarketSim/pkg/kafka"
	"MarketSim/pkg/logger"
)

const (
	CmdInitialize       = "initialize"
	CmdReset            = "reset"
	CmdUpdateSector     = "update_sector"
	CmdUpdateConditions = "update_conditions"
	CmdAddEvent         = "add_event"
	CmdClearEvents      = "clear_events"
	CmdTriggerEvent     = "trigger_event"
	CmdNextCandle       = "next_candle"
	CmdIntraday         = "intraday"
	CmdStartAuto        = "start_auto"
	CmdStopAuto         = "stop_auto"
)

var ErrUnknownCommand = errors.New("unknown control command")

// ControlHandler applies control commands from Kafka to the session.
// Invalid commands are permanent failures and are not retried.
type ControlHandler struct {
	topic   string
	session *Session
	metrics repository.Metrics
	log     *logger.Logger
}

func NewControlHandler(topic string, session *Session, metrics repository.Metrics, log *logger.Logger) *ControlHandler {
	return &ControlHandler{topic: topic, session: session, metrics: metrics, log: log.Component("control_handler")}
}

func (h *ControlHandler) Topic() string { return h.topic }

func (h *ControlHandler) Handle(ctx context.Context, b []byte) error {
	var cmd models.ControlCommand
	if err := json.Unmarshal(b, &cmd); err != nil {
		h.metrics.RecordError("control_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode control command: %w", err))
	}

	err := h.apply(ctx, &cmd)
	if err != nil {
		h.metrics.RecordError("control_" + cmd.Command)
		return pkgkafka.Permanent(fmt.Errorf("%s: %w", cmd.Command, err))
	}
	h.log.Debug("control command applied",
		logger.String("command", cmd.Command),
		logger.String("trace_id", pkgkafka.TraceIDFrom(ctx)),
	)
	return nil
}

func (h *ControlHandler) apply(ctx context.Context, cmd *models.ControlCommand) error {
	s := h.session
	switch cmd.Command {
	case CmdInitialize:
		if cmd.Profile == nil {
			return errors.New("profile is required")
		}
		_, err := s.Initialize(*cmd.Profile, cmd.Seed)
		return err
	case CmdReset:
		_, err := s.Reset(cmd.Profile)
		return err
	case CmdUpdateSector:
		if cmd.Sector == "" {
			return errors.New("sector is required")
		}
		_, err := s.UpdateSector(cmd.Sector)
		return err
	case CmdUpdateConditions:
		if cmd.Conditions == nil {
			return errors.New("conditions are required")
		}
		_, err := s.UpdateConditions(*cmd.Conditions)
		return err
	case CmdAddEvent:
		if cmd.Event == nil {
			return errors.New("event is required")
		}
		_, err := s.AddEvent(*cmd.Event)
		return err
	case CmdClearEvents:
		s.ClearEvents()
		return nil
	case CmdTriggerEvent:
		if cmd.Event == nil {
			return errors.New("event is required")
		}
		_, err := s.TriggerEvent(ctx, *cmd.Event)
		return err
	case CmdNextCandle:
		_, err := s.NextCandle(ctx)
		return err
	case CmdIntraday:
		if cmd.Minutes < 1 || cmd.Minutes > 390 {
			return fmt.Errorf("minutes must be in 1..390, got %d", cmd.Minutes)
		}
		_, err := s.Intraday(ctx, cmd.Minutes)
		return err
	case CmdStartAuto:
		return s.StartAuto(context.WithoutCancel(ctx))
	case CmdStopAuto:
		s.StopAuto()
		return nil
	default:
		return fmt.Errorf("%w '%s'", ErrUnknownCommand, cmd.Command)
	}
}

var _ pkgkafka.MessageHandler = (*ControlHandler)(nil)
