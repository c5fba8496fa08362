package carrier

import "encoding/xml"

const TwiMLContentType = "text/xml"

type twimlResponse struct {
	XMLName  xml.Name `xml:"Response"`
	Messages []string `xml:"Message"`
}

// RenderTwiML renders an inline reply document. An empty reply renders an
// empty Response, which tells the carrier not to answer.
func RenderTwiML(reply string) ([]byte, error) {
	doc := twimlResponse{}
	if reply != "" {
		doc.Messages = []string{reply}
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
