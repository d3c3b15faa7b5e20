package saj

import (
	"fmt"
	"net/url"
	"regexp"
)

const (
	ethernetInfoPath   = "/equipment_data.xml"
	ethernetStatusPath = "/real_time_data.xml"
	wifiInfoPath       = "/info.php"
	wifiStatusPath     = "/status/status.php"

	ethernetInfoRoot   = "equipment_data"
	ethernetStatusRoot = "real_time_data"

	wifiSerialColumn = 1
)

var serialRegexp = regexp.MustCompile(`^[0-9A-Z]{10,32}$`)

type Credentials struct {
	Username string
	Password string
}

func (c Credentials) userinfo() *url.Userinfo {
	if c.Username == "" && c.Password == "" {
		return nil
	}
	return url.UserPassword(c.Username, c.Password)
}

type Identity struct {
	SerialNumber    string `json:"serial_number"`
	Type            string `json:"type,omitempty"`
	Model           string `json:"model,omitempty"`
	SoftwareVersion string `json:"software_version,omitempty"`
	HardwareVersion string `json:"hardware_version,omitempty"`
	DisplayVersion  string `json:"display_version,omitempty"`
}

type protocol interface {
	infoURL(host string) *url.URL
	statusURL(host string) *url.URL
	basicAuth() (username, password string, ok bool)
	decodeIdentity(body []byte) (Identity, error)
	decodeStatus(body []byte) (Payload, error)
}

func newProtocol(dialect Dialect, credentials Credentials) protocol {
	if dialect == WiFi {
		return wifiProtocol{credentials: credentials}
	}
	return ethernetProtocol{}
}

func validSerial(serial string) error {
	if !serialRegexp.MatchString(serial) {
		return fmt.Errorf("%w: malformed serial number %q", ErrStructure, serial)
	}
	return nil
}

type ethernetProtocol struct{}

func (ethernetProtocol) infoURL(host string) *url.URL {
	return &url.URL{Scheme: "http", Host: host, Path: ethernetInfoPath}
}

func (ethernetProtocol) statusURL(host string) *url.URL {
	return &url.URL{Scheme: "http", Host: host, Path: ethernetStatusPath}
}

func (ethernetProtocol) basicAuth() (string, string, bool) {
	return "", "", false
}

func (ethernetProtocol) decodeIdentity(body []byte) (Identity, error) {
	doc, err := decodeXMLDocument(body, ethernetInfoRoot)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{
		SerialNumber:    doc.text("SN"),
		Type:            doc.text("type"),
		Model:           doc.text("model"),
		SoftwareVersion: doc.text("software_version"),
		HardwareVersion: doc.text("hardware_version"),
		DisplayVersion:  doc.text("display_version"),
	}
	if err := validSerial(id.SerialNumber); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (ethernetProtocol) decodeStatus(body []byte) (Payload, error) {
	return decodeXMLDocument(body, ethernetStatusRoot)
}

type wifiProtocol struct {
	credentials Credentials
}

func (p wifiProtocol) infoURL(host string) *url.URL {
	return &url.URL{Scheme: "http", Host: host, Path: wifiInfoPath, User: p.credentials.userinfo()}
}

func (p wifiProtocol) statusURL(host string) *url.URL {
	return &url.URL{Scheme: "http", Host: host, Path: wifiStatusPath, User: p.credentials.userinfo()}
}

func (p wifiProtocol) basicAuth() (string, string, bool) {
	return p.credentials.Username, p.credentials.Password, true
}

func (wifiProtocol) decodeIdentity(body []byte) (Identity, error) {
	columns, err := decodeCSVLine(body)
	if err != nil {
		return Identity{}, err
	}
	if len(columns) <= wifiSerialColumn {
		return Identity{}, fmt.Errorf("%w: info line has no serial column", ErrStructure)
	}
	id := Identity{SerialNumber: columns[wifiSerialColumn]}
	if err := validSerial(id.SerialNumber); err != nil {
		return Identity{}, err
	}
	// type, model, master, slave and communication firmware
	optional := []*string{&id.Type, nil, &id.Model, &id.SoftwareVersion, &id.HardwareVersion, &id.DisplayVersion}
	for i, dst := range optional {
		if dst != nil && i < len(columns) {
			*dst = columns[i]
		}
	}
	return id, nil
}

func (wifiProtocol) decodeStatus(body []byte) (Payload, error) {
	return decodeCSVRecord(body)
}
