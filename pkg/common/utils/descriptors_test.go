// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// orderFile describes shop.v1.Order. It imports timestamp.proto without
// carrying it, as protoc does without --include_imports.
func orderFile() *descriptorpb.FileDescriptorProto {
	field := func(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type, label descriptorpb.FieldDescriptorProto_Label, typeName string) *descriptorpb.FieldDescriptorProto {
		f := &descriptorpb.FieldDescriptorProto{
			Name:     proto.String(name),
			JsonName: proto.String(name),
			Number:   proto.Int32(number),
			Type:     typ.Enum(),
			Label:    label.Enum(),
		}
		if typeName != "" {
			f.TypeName = proto.String(typeName)
		}
		return f
	}
	optional := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String("shop/v1/order.proto"),
		Package:    proto.String("shop.v1"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{"google/protobuf/timestamp.proto"},
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("Status"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("STATUS_UNKNOWN"), Number: proto.Int32(0)},
				{Name: proto.String("STATUS_PAID"), Number: proto.Int32(1)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("Order"),
			Field: []*descriptorpb.FieldDescriptorProto{
				field("id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, optional, ""),
				field("placed_at", 2, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, optional, ".google.protobuf.Timestamp"),
				field("quantities", 3, descriptorpb.FieldDescriptorProto_TYPE_INT64, descriptorpb.FieldDescriptorProto_LABEL_REPEATED, ""),
				field("status", 4, descriptorpb.FieldDescriptorProto_TYPE_ENUM, optional, ".shop.v1.Status"),
			},
		}},
	}
}

func writeDescriptorSet(t *testing.T, files ...*descriptorpb.FileDescriptorProto) string {
	t.Helper()
	data, err := proto.Marshal(&descriptorpb.FileDescriptorSet{File: files})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "set.binpb")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func orderType(t *testing.T) protoreflect.MessageType {
	t.Helper()
	files, err := LoadFileDescriptorSet(writeDescriptorSet(t, orderFile()))
	require.NoError(t, err)
	mt, err := FindMessageType(files, "shop.v1.Order")
	require.NoError(t, err)
	return mt
}

func TestLoadFileDescriptorSet(t *testing.T) {
	md := orderType(t).Descriptor()
	assert.Equal(t, protoreflect.FullName("shop.v1.Order"), md.FullName())

	placedAt := md.Fields().ByName("placed_at")
	require.NotNil(t, placedAt)
	assert.Equal(t, protoreflect.FullName("google.protobuf.Timestamp"), placedAt.Message().FullName())
	assert.Equal(t, protoreflect.FullName("shop.v1.Status"), md.Fields().ByName("status").Enum().FullName())
	assert.True(t, md.Fields().ByName("quantities").IsList())
}

func TestLoadFileDescriptorSetErrors(t *testing.T) {
	_, err := LoadFileDescriptorSet(filepath.Join(t.TempDir(), "missing.binpb"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.binpb")
	require.NoError(t, os.WriteFile(bad, []byte{0xff, 0xff}, 0o600))
	_, err = LoadFileDescriptorSet(bad)
	assert.Error(t, err)

	unresolved := orderFile()
	unresolved.Dependency = append(unresolved.Dependency, "shop/v1/missing.proto")
	_, err = LoadFileDescriptorSet(writeDescriptorSet(t, unresolved))
	assert.ErrorContains(t, err, "shop/v1/missing.proto")
}

func TestFindMessageType(t *testing.T) {
	files, err := LoadFileDescriptorSet(writeDescriptorSet(t, orderFile()))
	require.NoError(t, err)

	_, err = FindMessageType(files, "shop.v1.Status")
	assert.ErrorContains(t, err, "not a message")

	_, err = FindMessageType(files, "shop.v1.Missing")
	assert.Error(t, err)

	mt, err := FindMessageType(files, "google.protobuf.Timestamp")
	require.NoError(t, err)
	assert.Equal(t, 2, mt.Descriptor().Fields().Len())
}
