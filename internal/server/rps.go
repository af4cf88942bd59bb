package server

import (
	"sync"

	"relaychat/internal/protocol"
)

// rpsState is the rock-paper-scissors coordinator's shared state: the
// symmetric pairing map and the per-user move buffer, guarded together so
// the pair invariant (pairs[a]==b iff pairs[b]==a) holds at every unlock.
type rpsState struct {
	mu    sync.Mutex
	pairs map[string]string
	moves map[string]string
}

func newRPSState() *rpsState {
	return &rpsState{
		pairs: make(map[string]string),
		moves: make(map[string]string),
	}
}

// dissolve removes user from any pair and clears both players' moves,
// returning the opponent's name if a pair existed.
func (g *rpsState) dissolve(user string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	opponent, ok := g.pairs[user]
	if !ok {
		return ""
	}
	delete(g.pairs, user)
	delete(g.pairs, opponent)
	delete(g.moves, user)
	delete(g.moves, opponent)
	return opponent
}

// activePairs returns each live pair once, for the admin API.
func (g *rpsState) activePairs() [][2]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out [][2]string
	for a, b := range g.pairs {
		if a < b {
			out = append(out, [2]string{a, b})
		}
	}
	return out
}

func (srv *Server) handleRPSStart(s *Session, frame protocol.Frame) error {
	user := s.Username()
	if user == "" {
		s.send(protocol.CmdRPSStartResp, protocol.RPSStartResp{
			Status: protocol.StatusError, Code: protocol.CodeRPSNoLogin,
		})
		return nil
	}

	var req protocol.RPSStartReq
	if err := frame.Decode(&req); err != nil {
		return err
	}
	if req.Receiver == user {
		s.send(protocol.CmdRPSStartResp, protocol.RPSStartResp{
			Status: protocol.StatusError, Code: protocol.CodeRPSSelf,
		})
		return nil
	}
	peer, ok := srv.registry.Get(req.Receiver)
	if !ok {
		s.send(protocol.CmdRPSStartResp, protocol.RPSStartResp{
			Status: protocol.StatusError, Code: protocol.CodeRPSNoOpponent,
		})
		return nil
	}

	g := srv.rps
	g.mu.Lock()
	if p1, p2, busy := g.conflictLocked(user, req.Receiver); busy {
		g.mu.Unlock()
		s.send(protocol.CmdRPSStartResp, protocol.RPSStartResp{
			Status: protocol.StatusError, Code: protocol.CodeRPSBusy,
			Player1: p1, Player2: p2,
		})
		return nil
	}
	// The pair is installed at invite time; a pending invite blocks new
	// games for both players until accepted, declined or resolved.
	g.pairs[user] = req.Receiver
	g.pairs[req.Receiver] = user
	g.mu.Unlock()

	s.send(protocol.CmdRPSStartResp, protocol.RPSStartResp{Status: protocol.StatusOK})
	peer.send(protocol.CmdRPSInvite, protocol.RPSInvite{Sender: user})
	return nil
}

// conflictLocked reports whether either player is already paired, and names
// the existing pair for the 11004 reply. Callers hold g.mu.
func (g *rpsState) conflictLocked(a, b string) (string, string, bool) {
	for _, user := range []string{a, b} {
		if opponent, ok := g.pairs[user]; ok {
			return user, opponent, true
		}
	}
	return "", "", false
}

func (srv *Server) handleRPSInviteResp(s *Session, frame protocol.Frame) error {
	user := s.Username()
	if user == "" {
		return nil
	}

	var resp protocol.RPSInviteResp
	if err := frame.Decode(&resp); err != nil {
		return err
	}

	g := srv.rps
	g.mu.Lock()
	opponent, paired := g.pairs[user]
	if paired && resp.Status == protocol.StatusDecline {
		delete(g.pairs, user)
		delete(g.pairs, opponent)
	}
	g.mu.Unlock()
	if !paired {
		return nil
	}

	peer, ok := srv.registry.Get(opponent)
	switch resp.Status {
	case protocol.StatusAccept:
		s.send(protocol.CmdRPSReady, nil)
		if ok {
			peer.send(protocol.CmdRPSReady, nil)
		}
	case protocol.StatusDecline:
		s.send(protocol.CmdRPSInviteDeclined, nil)
		if ok {
			peer.send(protocol.CmdRPSInviteDeclined, nil)
		}
	}
	return nil
}

func (srv *Server) handleRPSMove(s *Session, frame protocol.Frame) error {
	user := s.Username()

	g := srv.rps
	g.mu.Lock()
	opponent, paired := g.pairs[user]
	if !paired || user == "" {
		g.mu.Unlock()
		s.send(protocol.CmdRPSMoveResp, protocol.Errorf(protocol.CodeRPSNoGame))
		return nil
	}
	g.mu.Unlock()

	var move protocol.RPSMoveReq
	if err := frame.Decode(&move); err != nil {
		return err
	}

	g.mu.Lock()
	g.moves[user] = move.Choice
	opponentMove, bothIn := g.moves[opponent]
	var result *protocol.RPSResult
	if bothIn {
		result = resolveGame(user, move.Choice, opponent, opponentMove)
		delete(g.moves, user)
		delete(g.moves, opponent)
		delete(g.pairs, user)
		delete(g.pairs, opponent)
	}
	g.mu.Unlock()

	s.send(protocol.CmdRPSMoveResp, protocol.OK())
	if result == nil {
		return nil
	}
	for _, name := range []string{user, opponent} {
		if peer, ok := srv.registry.Get(name); ok {
			peer.send(protocol.CmdRPSResult, *result)
		}
	}
	return nil
}

// resolveGame applies the circular ranking: rock beats scissors, scissors
// beats paper, paper beats rock. Identical moves tie, leaving Winner nil.
func resolveGame(player1, move1, player2, move2 string) *protocol.RPSResult {
	result := &protocol.RPSResult{
		Choices: map[string]string{player1: move1, player2: move2},
	}
	if move1 == move2 {
		return result
	}
	winner := player2
	switch {
	case move1 == protocol.MoveRock && move2 == protocol.MoveScissors,
		move1 == protocol.MoveScissors && move2 == protocol.MovePaper,
		move1 == protocol.MovePaper && move2 == protocol.MoveRock:
		winner = player1
	}
	result.Winner = &winner
	return result
}
