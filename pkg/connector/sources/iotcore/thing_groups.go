package iotcore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iot/types"

	"github.com/ajitpratap0/iotcore/pkg/connector/core"
	"github.com/ajitpratap0/iotcore/pkg/errors"
	iotclient "github.com/ajitpratap0/iotcore/pkg/iot"
)

// Thing group table columns
const (
	ColumnThingGroupName = "thing_group_name"
	ColumnThingGroupArn  = "thing_group_arn"
)

type thingGroupTable struct {
	c *Connector
}

func (t *thingGroupTable) scan(ctx context.Context, quals []core.Qual, columns columnSet) core.RowIterator {
	prefix, filtered := ExtractFilter(core.KindThingGroup, quals)
	pageNum := 0

	fetch := func(ctx context.Context, token *string) (page[types.GroupNameAndArn], error) {
		in := &iot.ListThingGroupsInput{
			MaxResults: aws.Int32(iotclient.MaxResults),
			NextToken:  token,
		}
		if filtered {
			in.NamePrefixFilter = aws.String(prefix)
		}

		pageNum++
		var out *iot.ListThingGroupsOutput
		err := t.c.listPage(ctx, "ListThingGroups", pageNum, func(ctx context.Context) (int, error) {
			var err error
			out, err = t.c.registry.ListThingGroups(ctx, in)
			if err != nil {
				return 0, iotclient.WrapBackend(err, "no thing groups from IoT core")
			}
			return len(out.ThingGroups), nil
		})
		if err != nil {
			return page[types.GroupNameAndArn]{}, err
		}
		return page[types.GroupNameAndArn]{items: out.ThingGroups, next: out.NextToken}, nil
	}

	project := func(_ context.Context, g types.GroupNameAndArn) (core.Row, error) {
		row := core.Row{ColumnThingGroupName: aws.ToString(g.GroupName)}
		if columns.has(ColumnThingGroupArn) {
			row[ColumnThingGroupArn] = stringValue(g.GroupArn)
		}
		return row, nil
	}

	return newPageIterator(fetch, project, t.c.MetricsCollector().RowEmitted)
}

func (t *thingGroupTable) insert(context.Context, core.Row) (core.Row, error) {
	return nil, errors.NotImplemented("insert", core.KindThingGroup.String())
}

func (t *thingGroupTable) update(context.Context, string, core.Row) (core.Row, error) {
	return nil, errors.NotImplemented("update", core.KindThingGroup.String())
}

func (t *thingGroupTable) delete(context.Context, string) error {
	return errors.NotImplemented("delete", core.KindThingGroup.String())
}
