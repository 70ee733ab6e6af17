package tasksync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog/log"
)

// NewRedisPool creates a connection pool for addr
func NewRedisPool(addr, password string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr,
				redis.DialPassword(password),
				redis.DialConnectTimeout(5*time.Second),
			)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// RedisBroadcaster carries signals over a Redis pub/sub channel so that
// caches of every server instance invalidate together.
type RedisBroadcaster struct {
	pool       *redis.Pool
	channel    string
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewRedisBroadcaster(pool *redis.Pool, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{
		pool:       pool,
		channel:    channel,
		minBackoff: 250 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, sig Signal) error {
	payload, err := encodeSignal(sig)
	if err != nil {
		return err
	}

	conn, err := b.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("PUBLISH", b.channel, payload); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe dials a dedicated connection outside the pool and calls fn from a
// background goroutine. A dropped connection is re-dialed with capped
// backoff; after each reconnect fn receives a ReasonResubscribed signal
// since anything published during the outage was lost.
func (b *RedisBroadcaster) Subscribe(fn func(Signal)) (func(), error) {
	psc, err := b.dialSubscription()
	if err != nil {
		return nil, err
	}

	sub := &redisSubscription{
		broadcaster: b,
		fn:          fn,
		conn:        psc.Conn,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go sub.run(psc)

	var once sync.Once
	return func() {
		once.Do(sub.close)
	}, nil
}

// dialSubscription returns once the server has confirmed the subscription
func (b *RedisBroadcaster) dialSubscription() (redis.PubSubConn, error) {
	conn, err := b.pool.Dial()
	if err != nil {
		return redis.PubSubConn{}, fmt.Errorf("redis connection: %w", err)
	}

	psc := redis.PubSubConn{Conn: conn}
	if err := psc.Subscribe(b.channel); err != nil {
		conn.Close()
		return redis.PubSubConn{}, fmt.Errorf("redis subscribe: %w", err)
	}
	switch v := psc.ReceiveWithTimeout(subscribeTimeout).(type) {
	case redis.Subscription:
		return psc, nil
	case error:
		conn.Close()
		return redis.PubSubConn{}, fmt.Errorf("redis subscribe: %w", v)
	default:
		conn.Close()
		return redis.PubSubConn{}, fmt.Errorf("redis subscribe: unexpected reply %T", v)
	}
}

const subscribeTimeout = 5 * time.Second

type redisSubscription struct {
	broadcaster *RedisBroadcaster
	fn          func(Signal)

	mu      sync.Mutex
	conn    redis.Conn
	closing bool

	stop chan struct{}
	done chan struct{}
}

func (s *redisSubscription) run(psc redis.PubSubConn) {
	defer close(s.done)
	channel := s.broadcaster.channel

	for {
		err := s.receive(psc)
		psc.Close()
		if s.isClosing() {
			return
		}
		log.Error().Err(err).Str("channel", channel).Msg("redis subscription dropped, reconnecting")

		var ok bool
		if psc, ok = s.reconnect(); !ok {
			return
		}
		log.Info().Str("channel", channel).Msg("redis subscription restored")
		s.fn(Signal{Origin: "redis:" + channel, Reason: ReasonResubscribed})
	}
}

// receive delivers messages until the connection fails
func (s *redisSubscription) receive(psc redis.PubSubConn) error {
	for {
		switch v := psc.Receive().(type) {
		case redis.Message:
			sig, err := decodeSignal(v.Data)
			if err != nil {
				log.Warn().Err(err).Str("channel", v.Channel).Msg("dropping malformed signal")
				continue
			}
			s.fn(sig)
		case redis.Subscription:
			if v.Count == 0 {
				return fmt.Errorf("unsubscribed from %s", v.Channel)
			}
		case error:
			return v
		}
	}
}

func (s *redisSubscription) reconnect() (redis.PubSubConn, bool) {
	b := s.broadcaster
	delay := b.minBackoff
	for {
		select {
		case <-s.stop:
			return redis.PubSubConn{}, false
		case <-time.After(delay):
		}

		psc, err := b.dialSubscription()
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", delay).Str("channel", b.channel).Msg("redis resubscribe failed")
			delay = min(delay*2, b.maxBackoff)
			continue
		}

		s.mu.Lock()
		if s.closing {
			s.mu.Unlock()
			psc.Close()
			return redis.PubSubConn{}, false
		}
		s.conn = psc.Conn
		s.mu.Unlock()
		return psc, true
	}
}

func (s *redisSubscription) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// close interrupts the blocked read by closing the live connection
func (s *redisSubscription) close() {
	s.mu.Lock()
	s.closing = true
	conn := s.conn
	s.mu.Unlock()

	close(s.stop)
	conn.Close()
	<-s.done
}
