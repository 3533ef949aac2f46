// Package engine drives an external UCI chess engine over its standard
// input/output. One Session owns one engine process; sessions are never
// shared across concurrent analyses.
package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the engine settings for one session. Zero fields are
// filled with defaults when the session starts.
type Config struct {
	Path       string // engine binary path, or bare name resolved via PATH
	Threads    int    // setoption name Threads
	HashMB     int    // setoption name Hash
	Depth      int    // search depth per query
	MoveTimeMS int    // time budget per query in milliseconds
}

func (c *Config) applyDefaults() {
	if c.Path == "" {
		c.Path = "stockfish"
	}
	if c.Threads == 0 {
		c.Threads = 4
	}
	if c.HashMB == 0 {
		c.HashMB = 512
	}
	if c.Depth == 0 {
		c.Depth = 20
	}
	if c.MoveTimeMS == 0 {
		c.MoveTimeMS = 1000
	}
}

const (
	handshakeTimeout = 30 * time.Second
	quitTimeout      = 5 * time.Second
	// queryGrace is added to the per-query movetime budget before the
	// session gives up on a hung engine.
	queryGrace = 30 * time.Second
)

var (
	// ErrProcessExited reports that the engine process died while a query
	// was in flight. The session is dead; callers may start a new one but
	// must not retry on this one.
	ErrProcessExited = errors.New("engine process exited")

	// ErrQueryTimeout reports that the engine produced no bestmove within
	// the movetime budget plus grace. The session is killed.
	ErrQueryTimeout = errors.New("engine query timed out")

	// ErrNotReady is returned by Query when the session has not completed
	// its handshake or has already stopped.
	ErrNotReady = errors.New("engine session not ready")
)

// StartError wraps any failure to spawn or handshake the engine binary.
type StartError struct {
	Path string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("engine start %s: %v", e.Path, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

type sessionState int

const (
	stateNotStarted sessionState = iota
	stateHandshaking
	stateReady
	stateStopped
)

// Session owns one live engine process and its protocol state. A Session
// is exclusively owned by one caller and is not safe for concurrent use.
type Session struct {
	cfg   Config
	log   zerolog.Logger
	cmd   *exec.Cmd
	stdin io.WriteCloser

	lines   chan string
	waitErr chan error

	state sessionState
	err   error // terminal failure, sticky once set
}

// NewSession prepares a session for cfg. The process is not spawned
// until Start.
func NewSession(cfg Config, log zerolog.Logger) *Session {
	cfg.applyDefaults()
	return &Session{
		cfg: cfg,
		log: log.With().Str("component", "engine").Logger(),
	}
}

// Start spawns the engine binary and runs the UCI handshake: uci→uciok,
// Threads/Hash options, isready→readyok. Any failure, including a
// missing or non-executable binary or a handshake wait past 30s, is a
// *StartError.
func (s *Session) Start(ctx context.Context) error {
	if s.state != stateNotStarted {
		return fmt.Errorf("session already started")
	}

	path, err := resolveBinary(s.cfg.Path)
	if err != nil {
		return &StartError{Path: s.cfg.Path, Err: err}
	}

	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &StartError{Path: path, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &StartError{Path: path, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return &StartError{Path: path, Err: err}
	}

	s.cmd = cmd
	s.stdin = stdin
	s.lines = make(chan string, 64)
	s.waitErr = make(chan error, 1)
	s.state = stateHandshaking

	go func() {
		scanner := bufio.NewScanner(stdout)
		// info lines with long principal variations can exceed the
		// default token size
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			s.lines <- strings.TrimSpace(scanner.Text())
		}
		close(s.lines)
		s.waitErr <- cmd.Wait()
		close(s.waitErr)
	}()

	if err := s.handshake(ctx); err != nil {
		s.kill()
		s.fail(err)
		return &StartError{Path: path, Err: err}
	}

	s.state = stateReady
	s.log.Debug().
		Str("path", path).
		Int("threads", s.cfg.Threads).
		Int("hash_mb", s.cfg.HashMB).
		Msg("engine ready")
	return nil
}

func (s *Session) handshake(ctx context.Context) error {
	if err := s.send("uci"); err != nil {
		return err
	}
	if err := s.waitFor(ctx, "uciok", handshakeTimeout); err != nil {
		return err
	}
	if err := s.send(fmt.Sprintf("setoption name Threads value %d", s.cfg.Threads)); err != nil {
		return err
	}
	if err := s.send(fmt.Sprintf("setoption name Hash value %d", s.cfg.HashMB)); err != nil {
		return err
	}
	if err := s.send("isready"); err != nil {
		return err
	}
	return s.waitFor(ctx, "readyok", handshakeTimeout)
}

// Query evaluates one position: position fen <fen> / go depth <D>
// movetime <T>, then reads lines until bestmove, keeping the last-seen
// centipawn score, mate score and principal variation. Scores are
// side-to-move relative, exactly as the engine reports them.
func (s *Session) Query(ctx context.Context, fen string, depth, movetimeMS int) (Result, error) {
	if s.state != stateReady {
		if s.err != nil {
			return Result{}, s.err
		}
		return Result{}, ErrNotReady
	}
	if depth <= 0 {
		depth = s.cfg.Depth
	}
	if movetimeMS <= 0 {
		movetimeMS = s.cfg.MoveTimeMS
	}

	if err := s.send("position fen " + fen); err != nil {
		return Result{}, s.fail(ErrProcessExited)
	}
	if err := s.send(fmt.Sprintf("go depth %d movetime %d", depth, movetimeMS)); err != nil {
		return Result{}, s.fail(ErrProcessExited)
	}

	deadline := time.Duration(movetimeMS)*time.Millisecond + queryGrace
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	var res Result
	for {
		select {
		case <-ctx.Done():
			s.kill()
			return Result{}, s.fail(ctx.Err())
		case <-timer.C:
			s.kill()
			return Result{}, s.fail(ErrQueryTimeout)
		case line, ok := <-s.lines:
			if !ok {
				return Result{}, s.fail(ErrProcessExited)
			}
			if move, done := parseBestMove(line); done {
				res.BestMove = move
				return res, nil
			}
			parseInfo(line, &res)
		}
	}
}

// Err returns the session's terminal failure, if any. Once set the
// session is dead and every further Query fails with the same error.
func (s *Session) Err() error { return s.err }

// Stop shuts the engine down: quit, wait up to 5s, force-kill on
// timeout. Calling Stop on a stopped or never-started session is a
// no-op.
func (s *Session) Stop() {
	if s.state == stateStopped || s.state == stateNotStarted {
		s.state = stateStopped
		return
	}
	s.state = stateStopped

	_ = s.send("quit")
	go func() {
		for range s.lines {
		}
	}()
	select {
	case <-s.waitErr:
	case <-time.After(quitTimeout):
		s.log.Warn().Msg("engine ignored quit, killing")
		s.kill()
		<-s.waitErr
	}
}

func (s *Session) send(cmd string) error {
	_, err := io.WriteString(s.stdin, cmd+"\n")
	return err
}

func (s *Session) waitFor(ctx context.Context, token string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("timeout waiting for %q", token)
		case line, ok := <-s.lines:
			if !ok {
				return ErrProcessExited
			}
			if strings.Contains(line, token) {
				return nil
			}
		}
	}
}

func (s *Session) fail(err error) error {
	if s.err == nil {
		s.err = err
	}
	s.state = stateStopped
	// let the reader goroutine run out so the process can be reaped
	go func() {
		for range s.lines {
		}
	}()
	return s.err
}

func (s *Session) kill() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}

// resolveBinary checks that the engine binary exists and is executable.
// Bare names are resolved through PATH.
func resolveBinary(path string) (string, error) {
	if !strings.ContainsRune(path, os.PathSeparator) {
		return exec.LookPath(path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Mode().Perm()&0111 == 0 {
		return "", fmt.Errorf("%s is not executable", path)
	}
	return path, nil
}
