package feed

import (
	"net"
	"strings"
)

// gpsdWatch asks gpsd to relay the raw NMEA of every device it manages.
// gpsd still sends its JSON banner and device reports; isGPSDReport filters
// them out before dispatch.
func gpsdWatch(conn net.Conn) error {
	_, err := conn.Write([]byte("?WATCH={\"enable\":true,\"json\":false,\"nmea\":true}\n"))
	return err
}

func isGPSDReport(line string) bool {
	return strings.HasPrefix(line, "{")
}
