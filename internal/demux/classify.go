package demux

// Classification of multiplexed UDP datagrams, per RFC 7983 (formerly
// RFC 5764 section 5.1.2): every packet arriving on the single ICE-nominated
// UDP socket is one of STUN, DTLS, or SRTP/SRTCP, distinguished solely by
// its leading byte.

// PacketType identifies which protocol a datagram belongs to.
type PacketType int

const (
	Unknown PacketType = iota
	STUN
	DTLS
	RTP
)

// minRTPHeaderLen is the minimum size of a well-formed RTP/RTCP header.
// Datagrams in the SRTP byte range are routed only if they are longer than
// this.
const minRTPHeaderLen = 12

// Classify inspects the leading byte(s) of buf and reports which protocol
// it belongs to. It is oblivious to the sender's address; the ICE
// transport is responsible for validating STUN transaction authenticity
// and for binding the nominated remote endpoint used for sending.
func Classify(buf []byte) PacketType {
	if len(buf) < 1 {
		return Unknown
	}

	b := buf[0]
	switch {
	case b == 0 || b == 1:
		return STUN
	case b >= 20 && b <= 63:
		return DTLS
	case b >= 128 && b <= 191 && len(buf) > minRTPHeaderLen:
		return RTP
	default:
		return Unknown
	}
}

// String names a PacketType for logging.
func (pt PacketType) String() string {
	switch pt {
	case STUN:
		return "stun"
	case DTLS:
		return "dtls"
	case RTP:
		return "rtp"
	default:
		return "unknown"
	}
}
