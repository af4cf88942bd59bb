package server

import (
	"sync"

	"github.com/google/uuid"

	"relaychat/internal/protocol"
)

// pendingTransfer is one offered-but-unanswered file transfer.
type pendingTransfer struct {
	sender   string
	receiver string
	filename string
	checksum string
}

// Broker tracks offered file transfers between the sender's request and the
// receiver's accept/decline. The list is ordered; a receiver's answer always
// consumes their oldest pending entry.
type Broker struct {
	mu      sync.Mutex
	pending []pendingTransfer
}

func NewBroker() *Broker { return &Broker{} }

func (b *Broker) add(t pendingTransfer) {
	b.mu.Lock()
	b.pending = append(b.pending, t)
	b.mu.Unlock()
}

// takeForReceiver removes and returns the first pending entry addressed to
// receiver.
func (b *Broker) takeForReceiver(receiver string) (pendingTransfer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, t := range b.pending {
		if t.receiver == receiver {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return t, true
		}
	}
	return pendingTransfer{}, false
}

// dropReceiver discards every pending entry addressed to a user who left.
func (b *Broker) dropReceiver(receiver string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.pending[:0]
	for _, t := range b.pending {
		if t.receiver != receiver {
			kept = append(kept, t)
		}
	}
	b.pending = kept
}

// pendingCount is exposed through the admin API.
func (b *Broker) pendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (srv *Server) handleTransferRequest(s *Session, frame protocol.Frame) error {
	user := s.Username()
	if user == "" {
		s.send(protocol.CmdFileTransferResp, protocol.FileTransferResp{
			Status: protocol.StatusError, Code: protocol.CodeTransferNoLogin,
		})
		return nil
	}

	var req protocol.FileTransferReq
	if err := frame.Decode(&req); err != nil {
		return err
	}
	if req.Receiver == user {
		s.send(protocol.CmdFileTransferResp, protocol.FileTransferResp{
			Status: protocol.StatusError, Code: protocol.CodeTransferSelf,
		})
		return nil
	}
	peer, ok := srv.registry.Get(req.Receiver)
	if !ok {
		s.send(protocol.CmdFileTransferResp, protocol.FileTransferResp{
			Status: protocol.StatusError, Code: protocol.CodeTransferNoReceiver,
		})
		return nil
	}

	// The session's login name is authoritative for the sender, whatever
	// the payload claims.
	srv.broker.add(pendingTransfer{
		sender:   user,
		receiver: req.Receiver,
		filename: req.Filename,
		checksum: req.Checksum,
	})
	s.send(protocol.CmdFileTransferResp, protocol.FileTransferResp{Status: protocol.StatusOK})
	peer.send(protocol.CmdFileTransferReq, protocol.FileTransferReq{
		Sender:   user,
		Receiver: req.Receiver,
		Filename: req.Filename,
		Checksum: req.Checksum,
	})
	return nil
}

func (srv *Server) handleTransferResponse(s *Session, frame protocol.Frame) error {
	user := s.Username()
	if user == "" {
		return nil
	}

	var resp protocol.FileTransferResp
	if err := frame.Decode(&resp); err != nil {
		return err
	}

	matched, ok := srv.broker.takeForReceiver(user)
	if !ok {
		return nil
	}
	sender, senderOnline := srv.registry.Get(matched.sender)

	switch resp.Status {
	case protocol.StatusAccept:
		if !senderOnline {
			return nil
		}
		id := uuid.NewString()
		srv.relay.Create(id)
		sender.send(protocol.CmdFileTransferReady, protocol.FileTransferReady{
			UUID: id, Type: "s", Checksum: matched.checksum, Filename: matched.filename,
		})
		s.send(protocol.CmdFileTransferReady, protocol.FileTransferReady{
			UUID: id, Type: "r", Checksum: matched.checksum, Filename: matched.filename,
		})
	case protocol.StatusDecline:
		if senderOnline {
			sender.send(protocol.CmdFileTransferResp, protocol.FileTransferResp{
				Status: protocol.StatusDecline,
			})
		}
	}
	return nil
}
