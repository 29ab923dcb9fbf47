package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/textproto"
	"slices"
	"strings"
)

// Input selects how a request body is encoded.
type Input int

const (
	InputNone Input = iota
	InputJSON
	InputForm
	InputText
)

func (i Input) String() string {
	switch i {
	case InputJSON:
		return "json"
	case InputForm:
		return "form"
	case InputText:
		return "text"
	default:
		return "none"
	}
}

// Body is a request body. Construct one with [JSON], [Text], [Form],
// [Binary], [BinaryReader] or [Value].
type Body interface {
	bodyShape() shape
}

type shape int

const (
	shapeValue shape = iota
	shapeForm
	shapeBinary
)

type jsonBody struct{ v any }
type textBody struct{ s string }
type formBody struct{ fields map[string]any }
type valueBody struct{ v any }

type binaryBody struct {
	r           io.Reader
	size        int64
	contentType string
}

func (jsonBody) bodyShape() shape   { return shapeValue }
func (textBody) bodyShape() shape   { return shapeValue }
func (valueBody) bodyShape() shape  { return shapeValue }
func (formBody) bodyShape() shape   { return shapeForm }
func (binaryBody) bodyShape() shape { return shapeBinary }

// JSON sends v encoded as JSON.
func JSON(v any) Body { return jsonBody{v: v} }

// Text sends s as plain text.
func Text(s string) Body { return textBody{s: s} }

// Form sends fields as multipart/form-data. [Blob] and [File] values
// become file parts; everything else is formatted with fmt.Sprint.
// The transport sets the Content-Type, including its boundary.
func Form(fields map[string]any) Body { return formBody{fields: fields} }

// Binary sends data as-is, labelled with contentType when non-empty.
func Binary(data []byte, contentType string) Body {
	return binaryBody{r: bytes.NewReader(data), size: int64(len(data)), contentType: contentType}
}

// BinaryReader streams r as-is. size is the number of bytes r will
// yield, or -1 when unknown.
func BinaryReader(r io.Reader, size int64, contentType string) Body {
	return binaryBody{r: r, size: size, contentType: contentType}
}

// Value sends v encoded according to the request's input kind. Without
// one, v must already be a []byte, string, json.RawMessage or io.Reader.
func Value(v any) Body { return valueBody{v: v} }

// Blob is a binary value with its media type.
type Blob struct {
	Data        []byte
	ContentType string
}

// File is a named Blob, sent as a file part in forms.
type File struct {
	Name        string
	Data        []byte
	ContentType string
}

// Payload is an encoded request body ready for the transport.
type Payload struct {
	Body   io.Reader
	Length int64 // -1 when unknown

	// FormContentType is set for multipart payloads and always wins
	// over negotiated headers, since it carries the boundary.
	FormContentType string
}

func impliedInput(body Body) Input {
	switch body.(type) {
	case jsonBody:
		return InputJSON
	case textBody:
		return InputText
	default:
		return InputNone
	}
}

func isShape(body Body, s shape) bool {
	return body != nil && body.bodyShape() == s
}

// EncodeBody converts body into a transport payload. Form and binary
// bodies pass through regardless of input. InputNone falls back to the
// kind implied by the body's constructor.
func EncodeBody(body Body, input Input) (*Payload, error) {
	if body == nil {
		return nil, nil
	}

	switch b := body.(type) {
	case formBody:
		return encodeMultipart(b.fields)
	case binaryBody:
		return &Payload{Body: b.r, Length: b.size}, nil
	}

	if input == InputNone {
		input = impliedInput(body)
	}

	var value any
	switch b := body.(type) {
	case jsonBody:
		value = b.v
	case textBody:
		value = b.s
	case valueBody:
		value = b.v
	}

	switch input {
	case InputJSON:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
		return bytesPayload(data), nil

	case InputText:
		s, ok := value.(string)
		if !ok {
			return nil, &EncodingError{Input: InputText, Detail: "text input requires a string body"}
		}
		return bytesPayload([]byte(s)), nil

	case InputForm:
		fields, ok := value.(map[string]any)
		if !ok {
			return nil, &EncodingError{Input: InputForm, Detail: fmt.Sprintf("form input requires a map[string]any body, got %T", value)}
		}
		return encodeMultipart(fields)
	}

	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytesPayload(v), nil
	case json.RawMessage:
		return bytesPayload(v), nil
	case string:
		return bytesPayload([]byte(v)), nil
	case io.Reader:
		return &Payload{Body: v, Length: -1}, nil
	default:
		return nil, &EncodingError{Input: InputNone, Detail: fmt.Sprintf("cannot send %T without an input kind", value)}
	}
}

func bytesPayload(data []byte) *Payload {
	return &Payload{Body: bytes.NewReader(data), Length: int64(len(data))}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(fields map[string]any) (*Payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, name := range slices.Sorted(maps.Keys(fields)) {
		var err error
		switch v := fields[name].(type) {
		case nil:
			continue
		case Blob:
			err = writeFilePart(w, name, "blob", v.ContentType, v.Data)
		case *Blob:
			if v == nil {
				continue
			}
			err = writeFilePart(w, name, "blob", v.ContentType, v.Data)
		case File:
			err = writeFilePart(w, name, v.Name, v.ContentType, v.Data)
		case *File:
			if v == nil {
				continue
			}
			err = writeFilePart(w, name, v.Name, v.ContentType, v.Data)
		default:
			err = w.WriteField(name, fmt.Sprint(v))
		}
		if err != nil {
			return nil, fmt.Errorf("writing form field %q: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	return &Payload{
		Body:            bytes.NewReader(buf.Bytes()),
		Length:          int64(buf.Len()),
		FormContentType: w.FormDataContentType(),
	}, nil
}

func writeFilePart(w *multipart.Writer, field, filename, contentType string, data []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(field), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}

	_, err = part.Write(data)
	return err
}
