// Package device starts and stops the Ultimate 64 A/V streams over
// the device's control interfaces. The streams themselves are pure
// UDP push; this is only the on/off switch.
package device

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/u64view/u64view/pkg/config"
	"github.com/u64view/u64view/pkg/logger"
)

type StreamID uint8

const (
	StreamVideo StreamID = 0
	StreamAudio StreamID = 1
)

func (id StreamID) String() string {
	if id == StreamAudio {
		return "audio"
	}
	return "video"
}

// Raw TCP command port protocol, from the c64stream OBS plugin:
// start = 0x20+id 0xFF len16 dur16 "ip:port", stop = 0x30+id 0xFF 0 0.
const (
	commandPort = 64
	cmdStart    = 0x20
	cmdStop     = 0x30
)

// Control talks to one device. Zero value is unusable; use New.
type Control struct {
	conf   config.Device
	client *http.Client
	log    *logger.Logger
}

func New(conf config.Device, log *logger.Logger) *Control {
	return &Control{
		conf:   conf,
		client: &http.Client{Timeout: conf.Timeout},
		log:    log,
	}
}

// LocalIP returns the configured receive address or detects the one
// routable to the device.
func (c *Control) LocalIP() (string, error) {
	if c.conf.LocalIP != "" {
		return c.conf.LocalIP, nil
	}
	conn, err := net.DialTimeout("udp", net.JoinHostPort(c.conf.Host, "64"), c.conf.Timeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	addr, _, err := net.SplitHostPort(conn.LocalAddr().String())
	return addr, err
}

// StartStream asks the device to stream to dest ("ip:port").
func (c *Control) StartStream(id StreamID, dest string) error {
	if c.conf.Control == "tcp" {
		return c.tcpCommand(buildStartCommand(id, dest))
	}
	return c.rest(http.MethodPost, id, dest)
}

// StopStream stops a stream the device is sending.
func (c *Control) StopStream(id StreamID) error {
	if c.conf.Control == "tcp" {
		return c.tcpCommand(buildStopCommand(id))
	}
	return c.rest(http.MethodDelete, id, "")
}

func (c *Control) rest(method string, id StreamID, dest string) error {
	u := url.URL{Scheme: "http", Host: c.conf.Host, Path: "/v1/streams/" + id.String()}
	if dest != "" {
		u.RawQuery = url.Values{"ip": {dest}}.Encode()
	}
	req, err := http.NewRequest(method, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("device %v %v: http %d", method, id, resp.StatusCode)
	}
	return nil
}

func (c *Control) tcpCommand(cmd []byte) error {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(c.conf.Host, fmt.Sprint(commandPort)), c.conf.Timeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	_ = conn.SetWriteDeadline(time.Now().Add(c.conf.Timeout))
	n, err := conn.Write(cmd)
	if err != nil {
		return err
	}
	if n != len(cmd) {
		return fmt.Errorf("device command: short write %d/%d", n, len(cmd))
	}
	return nil
}

func buildStartCommand(id StreamID, dest string) []byte {
	// duration 0 = stream forever
	param := make([]byte, 2+len(dest))
	copy(param[2:], dest)
	cmd := make([]byte, 0, 4+len(param))
	cmd = append(cmd, cmdStart+byte(id), 0xFF)
	cmd = binary.LittleEndian.AppendUint16(cmd, uint16(len(param)))
	cmd = append(cmd, param...)
	return cmd
}

func buildStopCommand(id StreamID) []byte {
	return []byte{cmdStop + byte(id), 0xFF, 0x00, 0x00}
}
