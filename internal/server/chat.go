package server

import (
	"relaychat/internal/protocol"
)

// broadcastExcept fans one frame out to every named session except from.
// The registry is snapshotted first so a slow peer's write cannot hold the
// registry lock.
func (srv *Server) broadcastExcept(from *Session, cmd string, payload any) {
	for _, peer := range srv.registry.Snapshot() {
		if peer == from {
			continue
		}
		peer.send(cmd, payload)
	}
}

func (srv *Server) handleBroadcast(s *Session, frame protocol.Frame) error {
	user := s.Username()
	if user == "" {
		s.send(protocol.CmdBroadcastResp, protocol.Errorf(protocol.CodeBroadcastNoLogin))
		return nil
	}

	var req protocol.BroadcastReq
	if err := frame.Decode(&req); err != nil {
		return err
	}
	srv.broadcastExcept(s, protocol.CmdBroadcast, protocol.Broadcast{
		Username: user,
		Message:  req.Message,
	})
	s.send(protocol.CmdBroadcastResp, protocol.OK())
	return nil
}

func (srv *Server) handleList(s *Session) {
	if !s.named() {
		s.send(protocol.CmdListResp, protocol.ListResp{
			Status: protocol.StatusError,
			Code:   protocol.CodeListNoLogin,
		})
		return
	}
	s.send(protocol.CmdListResp, protocol.ListResp{
		Status:  protocol.StatusOK,
		Clients: srv.registry.Names(),
	})
}

func (srv *Server) handlePrivateMsg(s *Session, frame protocol.Frame) error {
	user := s.Username()
	if user == "" {
		s.send(protocol.CmdPrivateMsgResp, protocol.Errorf(protocol.CodePrivateNoLogin))
		return nil
	}

	var req protocol.PrivateMsgReq
	if err := frame.Decode(&req); err != nil {
		return err
	}
	if req.Receiver == user {
		s.send(protocol.CmdPrivateMsgResp, protocol.Errorf(protocol.CodePrivateSelf))
		return nil
	}
	peer, ok := srv.registry.Get(req.Receiver)
	if !ok {
		s.send(protocol.CmdPrivateMsgResp, protocol.Errorf(protocol.CodePrivateNoReceiver))
		return nil
	}

	peer.send(protocol.CmdPrivateMsg, protocol.PrivateMsg{Sender: user, Message: req.Message})
	s.send(protocol.CmdPrivateMsgResp, protocol.OK())
	return nil
}
