package client

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"relaychat/internal/protocol"
)

// Checksum returns the lowercase hex SHA-256 of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// uniquePath returns dir/filename, appending "(1)", "(2)", ... before the
// extension until the name does not collide with an existing file.
func uniquePath(dir, filename string) string {
	base := filename
	ext := ""
	if i := strings.LastIndex(filename, "."); i > 0 && i < len(filename)-1 {
		base = filename[:i]
		ext = filename[i:]
	}

	candidate := filepath.Join(dir, filename)
	for n := 1; ; n++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s(%d)%s", base, n, ext))
	}
}

// inputSendFile handles "/send <receiver> <path>": checksum the file,
// remember its path for the eventual upload, and offer it via the broker.
func (c *Client) inputSendFile(line string) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		c.printf("Invalid command. Use: /send <receiver> <file-path>")
		return
	}
	receiver, path := parts[1], parts[2]

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.printf("File does not exist or is invalid")
		return
	}

	checksum, err := Checksum(path)
	if err != nil {
		c.printf("Could not read file: %v", err)
		return
	}
	filename := filepath.Base(path)

	c.mu.Lock()
	c.filePaths[filename] = path
	c.mu.Unlock()

	c.sendOrReport(protocol.CmdFileTransferReq, protocol.FileTransferReq{
		Sender:   c.Username(),
		Receiver: receiver,
		Filename: filename,
		Checksum: checksum,
	})
}

// inputAnswerOffer handles "/a <sender> <filename>" and "/d ...": find the
// matching pending offer and answer the broker.
func (c *Client) inputAnswerOffer(line string, accept bool) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		c.printf("Invalid command. Use /a <sender> <filename> or /d <sender> <filename>.")
		return
	}
	sender, filename := parts[1], parts[2]

	c.mu.Lock()
	found := -1
	for i, req := range c.incoming {
		if req.Filename == filename {
			found = i
			break
		}
	}
	if found >= 0 {
		c.incoming = append(c.incoming[:found], c.incoming[found+1:]...)
	}
	c.mu.Unlock()

	if found < 0 {
		c.printf("No file request found.")
		return
	}

	if accept {
		c.printf("Accepted file %s from %s", filename, sender)
		c.sendOrReport(protocol.CmdFileTransferResp, protocol.FileTransferResp{Status: protocol.StatusAccept})
	} else {
		c.printf("Declined file %s from %s", filename, sender)
		c.sendOrReport(protocol.CmdFileTransferResp, protocol.FileTransferResp{Status: protocol.StatusDecline})
	}
}

func (c *Client) handleIncomingOffer(frame protocol.Frame) {
	var req protocol.FileTransferReq
	if frame.Decode(&req) != nil {
		return
	}
	c.mu.Lock()
	c.incoming = append(c.incoming, req)
	c.mu.Unlock()
	c.printf("New file transfer request from: %s", req.Sender)
}

func (c *Client) handleTransferResp(frame protocol.Frame) {
	var resp protocol.FileTransferResp
	if frame.Decode(&resp) != nil {
		return
	}
	switch resp.Status {
	case protocol.StatusOK:
		c.printf("File transfer request sent.")
	case protocol.StatusDecline:
		c.printf("File request declined.")
	default:
		switch resp.Code {
		case protocol.CodeTransferNoLogin:
			c.printf("Please log in first.")
		case protocol.CodeTransferNoReceiver:
			c.printf("No receiver found.")
		case protocol.CodeTransferSelf:
			c.printf("Can't send the file to yourself.")
		}
	}
}

// handleTransferReady reacts to the broker's go-ahead: dial the auxiliary
// port in the role the server assigned and move the bytes.
func (c *Client) handleTransferReady(frame protocol.Frame) {
	var ready protocol.FileTransferReady
	if frame.Decode(&ready) != nil {
		return
	}
	go func() {
		var err error
		switch ready.Type {
		case "s":
			err = c.uploadFile(ready)
		case "r":
			err = c.downloadFile(ready)
		}
		if err != nil {
			c.printf("File transfer failed: %v", err)
		}
	}()
}

func (c *Client) dialRelay(id string, role byte) (net.Conn, error) {
	conn, err := net.Dial("tcp", c.relayAddr)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", c.relayAddr, err)
	}
	header := append([]byte(id), role)
	if _, err := conn.Write(header); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write relay header: %w", err)
	}
	return conn, nil
}

func (c *Client) uploadFile(ready protocol.FileTransferReady) error {
	c.mu.Lock()
	path, ok := c.filePaths[ready.Filename]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("no stored path for filename %s", ready.Filename)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	conn, err := c.dialRelay(ready.UUID, protocol.RoleSender)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := io.Copy(conn, f); err != nil {
		return fmt.Errorf("sending file: %w", err)
	}
	c.printf("All file bytes sent successfully.")
	return nil
}

func (c *Client) downloadFile(ready protocol.FileTransferReady) error {
	if err := os.MkdirAll(c.downloadDir, 0o750); err != nil {
		return err
	}

	conn, err := c.dialRelay(ready.UUID, protocol.RoleReceive)
	if err != nil {
		return err
	}
	defer conn.Close()

	outPath := uniquePath(c.downloadDir, ready.Filename)
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}

	c.printf("Downloading...")
	_, copyErr := io.Copy(out, conn)
	closeErr := out.Close()
	if copyErr != nil {
		return fmt.Errorf("writing downloaded file: %w", copyErr)
	}
	if closeErr != nil {
		return closeErr
	}

	actual, err := Checksum(outPath)
	if err != nil {
		return err
	}
	if ready.Checksum != "" && actual != ready.Checksum {
		c.printf("Checksum mismatch! Expected: %s", ready.Checksum)
		c.printf("Actual: %s", actual)
		return nil
	}
	c.printf("File download complete. Saved to: %s", outPath)
	return nil
}
