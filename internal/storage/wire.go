package storage

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"pacplan/internal/model"
)

// Classifier wire fields.
const (
	fieldSchemaVersion protowire.Number = 1
	fieldCodecVersion  protowire.Number = 2
	fieldID            protowire.Number = 3
	fieldName          protowire.Number = 4
	fieldCreatedAt     protowire.Number = 5
	fieldFeatures      protowire.Number = 6
	fieldClasses       protowire.Number = 7
	fieldMaxDepth      protowire.Number = 8
	fieldSamples       protowire.Number = 9
	fieldNodes         protowire.Number = 10
)

// Tree node wire fields.
const (
	nodeFeature   protowire.Number = 1
	nodeThreshold protowire.Number = 2
	nodeLeft      protowire.Number = 3
	nodeRight     protowire.Number = 4
	nodeClass     protowire.Number = 5
	nodeSamples   protowire.Number = 6
	nodeImpurity  protowire.Number = 7
	nodeCounts    protowire.Number = 8
)

// EncodeClassifier produces the protobuf wire encoding of c.
func EncodeClassifier(c model.Classifier) ([]byte, error) {
	var b []byte
	b = appendVarint(b, fieldSchemaVersion, uint64(c.SchemaVersion))
	b = appendVarint(b, fieldCodecVersion, uint64(c.CodecVersion))
	b = appendString(b, fieldID, c.ID)
	b = appendString(b, fieldName, c.Name)
	b = appendString(b, fieldCreatedAt, c.CreatedAtUTC)
	for _, f := range c.Features {
		b = appendString(b, fieldFeatures, f)
	}
	for _, cl := range c.Classes {
		b = appendString(b, fieldClasses, cl)
	}
	b = appendVarint(b, fieldMaxDepth, uint64(c.MaxDepth))
	b = appendVarint(b, fieldSamples, uint64(c.Samples))
	for _, node := range c.Nodes {
		b = protowire.AppendTag(b, fieldNodes, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeNode(node))
	}
	return b, nil
}

// DecodeClassifier parses a wire-encoded classifier and checks its version.
// Unknown fields, and known fields with an unexpected wire type, are skipped.
func DecodeClassifier(data []byte) (model.Classifier, error) {
	var c model.Classifier
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return model.Classifier{}, protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case num == fieldSchemaVersion && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			c.SchemaVersion, n = int(v), m
		case num == fieldCodecVersion && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			c.CodecVersion, n = int(v), m
		case num == fieldID && typ == protowire.BytesType:
			c.ID, n = protowire.ConsumeString(data)
		case num == fieldName && typ == protowire.BytesType:
			c.Name, n = protowire.ConsumeString(data)
		case num == fieldCreatedAt && typ == protowire.BytesType:
			c.CreatedAtUTC, n = protowire.ConsumeString(data)
		case num == fieldFeatures && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(data)
			c.Features = append(c.Features, s)
		case num == fieldClasses && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(data)
			c.Classes = append(c.Classes, s)
		case num == fieldMaxDepth && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			c.MaxDepth, n = int(v), m
		case num == fieldSamples && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			c.Samples, n = int(v), m
		case num == fieldNodes && typ == protowire.BytesType:
			var raw []byte
			raw, n = protowire.ConsumeBytes(data)
			if n >= 0 {
				node, err := decodeNode(raw)
				if err != nil {
					return model.Classifier{}, fmt.Errorf("node %d: %w", len(c.Nodes), err)
				}
				c.Nodes = append(c.Nodes, node)
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return model.Classifier{}, protowire.ParseError(n)
		}
		data = data[n:]
	}
	if err := checkVersion(c.VersionedRecord); err != nil {
		return model.Classifier{}, err
	}
	return c, nil
}

func encodeNode(node model.TreeNode) []byte {
	var b []byte
	b = appendSigned(b, nodeFeature, node.Feature)
	b = protowire.AppendTag(b, nodeThreshold, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(node.Threshold))
	b = appendSigned(b, nodeLeft, node.Left)
	b = appendSigned(b, nodeRight, node.Right)
	b = appendSigned(b, nodeClass, node.Class)
	b = appendVarint(b, nodeSamples, uint64(node.Samples))
	b = protowire.AppendTag(b, nodeImpurity, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(node.Impurity))
	if len(node.Counts) > 0 {
		var packed []byte
		for _, c := range node.Counts {
			packed = protowire.AppendVarint(packed, uint64(c))
		}
		b = protowire.AppendTag(b, nodeCounts, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

func decodeNode(data []byte) (model.TreeNode, error) {
	var node model.TreeNode
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return model.TreeNode{}, protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case num == nodeFeature && typ == protowire.VarintType:
			node.Feature, n = consumeSigned(data)
		case num == nodeLeft && typ == protowire.VarintType:
			node.Left, n = consumeSigned(data)
		case num == nodeRight && typ == protowire.VarintType:
			node.Right, n = consumeSigned(data)
		case num == nodeClass && typ == protowire.VarintType:
			node.Class, n = consumeSigned(data)
		case num == nodeSamples && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			node.Samples, n = int(v), m
		case num == nodeThreshold && typ == protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(data)
			node.Threshold, n = math.Float64frombits(v), m
		case num == nodeImpurity && typ == protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(data)
			node.Impurity, n = math.Float64frombits(v), m
		case num == nodeCounts && typ == protowire.BytesType:
			var packed []byte
			packed, n = protowire.ConsumeBytes(data)
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return model.TreeNode{}, protowire.ParseError(m)
				}
				node.Counts = append(node.Counts, int(v))
				packed = packed[m:]
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return model.TreeNode{}, protowire.ParseError(n)
		}
		data = data[n:]
	}
	return node, nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSigned(b []byte, num protowire.Number, v int) []byte {
	return appendVarint(b, num, protowire.EncodeZigZag(int64(v)))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func consumeSigned(data []byte) (int, int) {
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, n
	}
	return int(protowire.DecodeZigZag(v)), n
}
