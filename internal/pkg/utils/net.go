package utils

import "net"

// GetOutboundIP 通过拨一个 UDP "连接" 拿到本机对外 IP，用于服务注册。
// 不会真正发包。
func GetOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}
