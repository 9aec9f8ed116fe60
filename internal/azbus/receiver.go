package azbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/sirupsen/logrus"

	"go-rail-employee-registry/internal/dto"
)

// Invalidator drops a cached snapshot.
type Invalidator interface {
	Invalidate(reason string)
}

type SessionReceiverOptions struct {
	SessionPool int
	BatchSize   int
	ProcessPool int
	RetryDelay  int
}

type sessionAcceptor interface {
	AcceptNextSessionForSubscription(ctx context.Context, topicName string, subscriptionName string, options *azservicebus.SessionReceiverOptions) (*azservicebus.SessionReceiver, error)
}

// SessionReceiver consumes change messages from this instance's
// subscription and invalidates the local cache for writes made elsewhere.
type SessionReceiver struct {
	ctx          context.Context
	wg           sync.WaitGroup
	done         chan struct{}
	client       sessionAcceptor
	topic        string
	subscription string
	origin       string
	cache        Invalidator
	logger       logrus.FieldLogger
	options      SessionReceiverOptions
}

func NewSessionReceiver(ctx context.Context, client *azservicebus.Client, topic, subscription, origin string, cache Invalidator, logger logrus.FieldLogger, opts *SessionReceiverOptions) *SessionReceiver {
	defaultOpts := SessionReceiverOptions{
		SessionPool: 20,
		BatchSize:   5,
		ProcessPool: 1,
		RetryDelay:  5,
	}

	if opts != nil {
		if opts.SessionPool > 0 {
			defaultOpts.SessionPool = opts.SessionPool
		}
		if opts.BatchSize > 0 {
			defaultOpts.BatchSize = opts.BatchSize
		}
		if opts.ProcessPool > 0 {
			defaultOpts.ProcessPool = opts.ProcessPool
		}
		if opts.RetryDelay > 0 {
			defaultOpts.RetryDelay = opts.RetryDelay
		}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	sr := &SessionReceiver{
		ctx:          ctx,
		done:         make(chan struct{}),
		topic:        topic,
		subscription: subscription,
		origin:       origin,
		cache:        cache,
		logger:       logger.WithField("subscription", topic+"/"+subscription),
		options:      defaultOpts,
	}
	if client != nil {
		sr.client = client
	}
	return sr
}

// RunDispatcher accepts sessions until the context is cancelled and hands
// each one to a worker slot. It returns once every session worker is done.
func (sr *SessionReceiver) RunDispatcher() {
	defer close(sr.done)

	workerCH := make(chan int, sr.options.SessionPool)
	for i := range sr.options.SessionPool {
		workerCH <- i + 1
	}

	for {
		select {
		case <-sr.ctx.Done():
			sr.logger.Info("[receiver] shutting down, waiting for active sessions")
			sr.wg.Wait()
			sr.logger.Info("[receiver] all active sessions completed")
			return
		default:
		}

		select {
		case workerNo := <-workerCH:
			acceptCtx, acceptCancel := context.WithTimeout(sr.ctx, 5*time.Second)

			sessionReceiver, err := sr.client.AcceptNextSessionForSubscription(acceptCtx, sr.topic, sr.subscription, nil)
			if err != nil {
				acceptCancel()
				workerCH <- workerNo
				if errors.Is(err, context.DeadlineExceeded) {
					sr.logger.Debugf("[receiver] Worker<%d>: session accept timed out", workerNo)
				} else if sr.ctx.Err() == nil {
					sr.logger.WithError(err).Warnf("[receiver] Worker<%d>: accept session failed, retrying in %ds", workerNo, sr.options.RetryDelay)
				}
				sr.sleep(time.Duration(sr.options.RetryDelay) * time.Second)
				continue
			}

			sr.wg.Add(1)
			go sr.runSessionWorker(sessionReceiver, acceptCancel, workerCH, workerNo)
		default:
			sr.sleep(100 * time.Millisecond)
		}
	}
}

// Done is closed when RunDispatcher has returned.
func (sr *SessionReceiver) Done() <-chan struct{} {
	return sr.done
}

func (sr *SessionReceiver) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-sr.ctx.Done():
	case <-t.C:
	}
}

func (sr *SessionReceiver) runSessionWorker(sessionReceiver *azservicebus.SessionReceiver, acceptCancel context.CancelFunc, workerCH chan int, workerNo int) {
	defer sr.wg.Done()
	defer func() { workerCH <- workerNo }()
	defer acceptCancel()
	defer sessionReceiver.Close(context.Background())

	log := sr.logger.WithFields(logrus.Fields{"worker": workerNo, "session": sessionReceiver.SessionID()})

	recvCtx, cancel := context.WithTimeout(sr.ctx, 10*time.Second)
	msgs, err := sessionReceiver.ReceiveMessages(recvCtx, sr.options.BatchSize, nil)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Debug("[receiver] no messages, polling again")
			return
		}
		log.WithError(err).Error("[receiver] receive failed")
		return
	}
	if len(msgs) == 0 {
		return
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, sr.options.ProcessPool)
	for _, msg := range msgs {
		sem <- struct{}{}
		wg.Add(1)
		go sr.runMessageWorker(sem, &wg, sessionReceiver, msg)
	}
	wg.Wait()
	log.WithField("messages", len(msgs)).Debug("[receiver] session batch done")
}

func (sr *SessionReceiver) runMessageWorker(sem chan struct{}, wg *sync.WaitGroup, sessionReceiver *azservicebus.SessionReceiver, msg *azservicebus.ReceivedMessage) {
	defer wg.Done()
	defer func() { <-sem }()

	if err := sr.handleMessage(msg); err != nil {
		sr.logger.WithError(err).Warn("[receiver] dead-lettering change message")
		reason := "PROCESSING_FAILED"
		desc := err.Error()
		if dlErr := sessionReceiver.DeadLetterMessage(sr.ctx, msg, &azservicebus.DeadLetterOptions{
			Reason:           &reason,
			ErrorDescription: &desc,
		}); dlErr != nil {
			sr.logger.WithError(dlErr).Error("[receiver] dead-letter failed")
		}
		return
	}

	if err := sessionReceiver.CompleteMessage(sr.ctx, msg, nil); err != nil {
		sr.logger.WithError(err).Error("[receiver] complete failed")
	}
}

// handleMessage drops the cache for changes announced by other instances.
// Messages this instance published itself are acknowledged without effect.
func (sr *SessionReceiver) handleMessage(msg *azservicebus.ReceivedMessage) error {
	if msg == nil {
		return fmt.Errorf("received nil message")
	}

	var body dto.ChangeMessage
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		return fmt.Errorf("invalid message json: %w", err)
	}
	if err := body.Validate(); err != nil {
		return err
	}
	if body.Origin == sr.origin {
		return nil
	}

	sr.cache.Invalidate("remote " + string(body.Action))
	sr.logger.WithFields(logrus.Fields{
		"action": body.Action,
		"id":     body.DocumentID,
		"origin": body.Origin,
	}).Info("[receiver] remote change applied")
	return nil
}
